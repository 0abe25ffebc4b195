// feed.go
//
// A feed is the shared input cursor for one source of evaluation: the
// current value (never nil; the shared end sentinel when exhausted), the
// backing array and index, the binding specifier for relativized cells,
// a one-cell fetched scratch for variadic-sourced values, a one-cell
// lookback slot, and a cached look-ahead "gotten" value.  A feed takes a
// read hold on its array for its lifetime, so mutation during iteration
// fails.

package reb

const (
	feedFlagNoLookahead uint32 = 1 << iota // enfix right-arg: do not run lookahead
	feedFlagDeferPending                   // an enfix defer is outstanding (one level max)
)

type Feed struct {
	value     *Cell
	array     *Series
	index     int // index of the value *after* the current one
	specifier *Series
	pending   []*Cell // variadic splice, consumed before the array resumes
	fetched   Cell    // scratch a variadic value is copied into
	lookback  Cell    // the previously current value
	gotten    *Cell   // cached lookup of value when it is a word
	flags     uint32
	tookHold  bool
}

// newFeed starts a feed over array content beginning at index.
func (rt *Runtime) newFeed(a *Series, index int, specifier *Series) *Feed {
	fd := &Feed{array: a, index: index, specifier: specifier}
	if a != nil {
		fd.tookHold = a.takeHold()
	}
	fd.prime()
	return fd
}

// newVariadicFeed feeds from an explicit cell list (API and vararg use).
func (rt *Runtime) newVariadicFeed(cells []*Cell) *Feed {
	fd := &Feed{pending: cells}
	fd.prime()
	return fd
}

// prime establishes the initial current value.
func (fd *Feed) prime() {
	if len(fd.pending) > 0 {
		copyCell(&fd.fetched, fd.pending[0])
		fd.pending = fd.pending[1:]
		fd.value = &fd.fetched
		return
	}
	if fd.array != nil && fd.index < fd.array.Len() {
		fd.value = fd.array.at(fd.index)
		fd.index++
		return
	}
	fd.value = &endCell
}

func (fd *Feed) atEnd() bool { return fd.value == &endCell }

// fetchNext advances, saving the old current value in the lookback slot.
func (fd *Feed) fetchNext() {
	if fd.atEnd() {
		panicDiag("fetch past end of feed")
	}
	copyCell(&fd.lookback, fd.value)
	fd.gotten = nil
	fd.prime()
}

// free releases the read hold (only if this feed took it).
func (fd *Feed) free() {
	if fd.tookHold && fd.array != nil {
		fd.array.releaseHold()
		fd.tookHold = false
	}
}

// ---------------------------------------------------------------------------
// Varargs consumption
// ---------------------------------------------------------------------------

// varargsNext evaluates one expression from the feed of the frame that
// owns a VARARGS! cell, writing the result into out.  An exhausted feed
// yields null.  Returns true when the evaluation threw.
func (rt *Runtime) varargsNext(va *Cell, out *Cell) bool {
	if va.Heart() != KindVarargs {
		failType("not-varargs", "varargs access on non-varargs value")
	}
	varlist := va.binding()
	var owner *Frame
	for f := rt.topFrame; f != nil; f = f.prior {
		if f.varlist == varlist {
			owner = f
			break
		}
	}
	if owner == nil {
		failAccess("varargs-frame-expired")
	}
	fd := owner.feed
	if fd.atEnd() {
		InitNull(out)
		return false
	}
	return rt.evalExpression(fd, out, evalFlagFulfillingArg)
}
