// bind.go
//
// Binding connects word cells to contexts.  A transient binder seeds
// canon→index entries from a context's keylist, a recursive walk stamps
// bindings onto bindable words, and the binder is torn down before any
// failing operation can run.  Virtual binding creates loop-local contexts
// over a copied body.

package reb

import "strconv"

// bindKindsAll admits every word kind to binding.
var bindKindsAll = typesetBit(KindWord) | typesetBit(KindSetWord) |
	typesetBit(KindGetWord) | typesetBit(KindSymWord) | typesetBit(KindIssue)

// bindValuesDeep walks array content and binds matching words into the
// context.  bindKinds selects which word kinds bind; addMidstream selects
// which unknown word kinds get appended to the context as they are seen.
func (rt *Runtime) bindValuesDeep(a *Series, ctx *Series, bindKinds, addMidstream uint64) {
	b := rt.newBinder()
	defer b.release()

	keylist := contextKeylist(ctx)
	for i := 1; i < keylist.Len(); i++ {
		sym := keylist.at(i).paramSpelling()
		if b.get(sym) == 0 {
			b.add(sym, i)
		}
	}
	rt.bindWalk(a, ctx, b, bindKinds, addMidstream, true)
}

func (rt *Runtime) bindWalk(a *Series, ctx *Series, b *binder, bindKinds, addMidstream uint64, deep bool) {
	for i := 0; i < a.Len(); i++ {
		c := a.at(i)
		h := c.unquotedCell().Heart()
		switch {
		case isWordKind(h):
			if bindKinds&typesetBit(h) == 0 {
				continue
			}
			idx := b.get(c.unquotedCell().wordSpelling())
			switch {
			case idx > 0:
				rt.unquotedCellMutable(c).bindWord(ctx, idx)
			case idx < 0:
				// Negative index: import from the fallback context.
				if rt.lib != nil {
					rt.unquotedCellMutable(c).bindWord(rt.lib, -idx)
				}
			case addMidstream&typesetBit(h) != 0:
				w := rt.unquotedCellMutable(c)
				rt.appendContextKey(ctx, w.wordSpelling())
				slot := contextLen(ctx)
				b.add(w.wordSpelling(), slot)
				w.bindWord(ctx, slot)
			}
		case isArrayKind(h):
			if deep {
				rt.bindWalk(c.unquotedCell().series(), ctx, b, bindKinds, addMidstream, true)
			}
		}
	}
}

// unbindValuesDeep strips bindings (optionally only those pointing at a
// given context).
func (rt *Runtime) unbindValuesDeep(a *Series, ctx *Series) {
	for i := 0; i < a.Len(); i++ {
		c := a.at(i).unquotedCell()
		h := c.Heart()
		switch {
		case isWordKind(h):
			if ctx == nil || c.binding() == ctx {
				c.unbindWord()
			}
		case isArrayKind(h):
			rt.unbindValuesDeep(c.series(), ctx)
		}
	}
}

// ---------------------------------------------------------------------------
// Word resolution
// ---------------------------------------------------------------------------

// lookupWord dereferences a word's binding to its variable cell.  Relative
// bindings (paramlist) resolve through the specifier, which must be the
// varlist of a frame running a phase of that action.
func (rt *Runtime) lookupWord(w *Cell, specifier *Series) *Cell {
	bindingNode := w.binding()
	if bindingNode == nil {
		failBinding("word-not-bound", symbolText(w.wordSpelling()))
	}
	if bindingNode.isParamlist() {
		if specifier == nil || !specifier.isVarlist() {
			failBinding("relative-word-without-specifier", symbolText(w.wordSpelling()))
		}
		return contextVar(specifier, w.wordIndex())
	}
	return contextVar(bindingNode, w.wordIndex())
}

// getWordValue copies the variable's value; a get on an unset (trash) slot
// fails.
func (rt *Runtime) getWordValue(out *Cell, w *Cell, specifier *Series) *Cell {
	v := rt.lookupWord(w, specifier)
	return copyCell(out, v)
}

func (rt *Runtime) setWordValue(w *Cell, specifier *Series, v *Cell) {
	dst := rt.lookupWord(w, specifier)
	if dst.getFlag(cellFlagProtected) {
		failAccess("variable-protected")
	}
	copyCell(dst, v)
}

// ---------------------------------------------------------------------------
// Virtual binding
// ---------------------------------------------------------------------------

// virtualBind builds a fresh context from a spec of variable names and
// deep-copies/rebinds the body into it.  Per the loop-construct contract:
// literal-quoted variables reuse their existing binding instead of getting
// a fresh slot, blanks create hidden dummy keys, and duplicate keys are
// collected and reported only after the binder is torn down.
func (rt *Runtime) virtualBind(vars []*Cell, body *Series, copyBody bool) (*Series, *Series) {
	ctx := rt.makeContext(KindObject, len(vars))

	var dup *Series // first duplicate spelling, reported after teardown
	func() {
		b := rt.newBinder()
		defer b.release()

		dummies := 0
		for _, v := range vars {
			switch {
			case v.Heart() == KindBlank:
				dummies++
				sym := rt.internSymbol(dummySpelling(dummies))
				rt.appendContextKey(ctx, sym)
				key := contextKey(ctx, contextLen(ctx))
				key.setFlag(cellFlagVarMarkedHidden)
			case v.QuoteDepth() > 0 && isWordKind(v.Heart()):
				// Literal-quoted: keep the word's existing binding.
				continue
			case isWordKind(v.Heart()):
				sym := v.wordSpelling()
				if b.get(sym) != 0 {
					if dup == nil {
						dup = sym
					}
					continue
				}
				rt.appendContextKey(ctx, sym)
				b.add(sym, contextLen(ctx))
			default:
				failBinding("loop-variable-not-word", "")
			}
		}
	}()
	if dup != nil {
		failBinding("duplicate-variable", symbolText(dup))
	}

	if copyBody {
		body = rt.copyArrayDeep(body)
	}
	rt.bindValuesDeep(body, ctx, bindKindsAll, 0)
	return ctx, body
}

func dummySpelling(n int) string {
	return "dummy" + strconv.Itoa(n)
}

// copyArrayDeep copies an array and, recursively, the arrays its cells
// reference; non-array series are shared.
func (rt *Runtime) copyArrayDeep(a *Series) *Series {
	out := rt.makeArray(a.Len(), nodeFlagManaged)
	for i := 0; i < a.Len(); i++ {
		dst := rt.appendCell(out, a.at(i))
		if u := dst.unquotedCell(); isArrayKind(u.Heart()) {
			inner := rt.copyArrayDeep(u.series())
			rt.unquotedCellMutable(dst).first.node = inner
		}
	}
	return out
}

