// error.go
//
// Errors are first-class values: an ERROR! is a context with type, id,
// message, and location fields.  Internal code raises one with fail(),
// which panics through the trap chain; each trap records the data stack
// pointer, the manuals watermark, and the frame stack top so unwinding
// restores all three together.  Public entry points recover the panic and
// surface a *Error (a Go error) with a caret-style source snippet when the
// failure came from the scanner.
//
// Throws are not panics: they are a sentinel out-cell plus a label/value
// pair on the runtime that every dispatcher propagates until caught.

package reb

import (
	"fmt"
	"strings"
)

// Error is the boundary representation of an ERROR! value.
type Error struct {
	Type    string // "scan", "type", "binding", "access", "capacity", "dispatch", "internal", "halt"
	ID      string
	Message string
	Near    string // mold of the expression vicinity, when known
	Line    int    // 1-based, scan errors only
	Col     int
	Src     string // source text for snippet rendering, scan errors only
}

func (e *Error) Error() string {
	if e.Type == "scan" && e.Src != "" && e.Line > 0 {
		return renderSnippet(e.Src, e.Line, e.Col, "SCAN ERROR", e.describe())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "** %s error: %s", e.Type, e.describe())
	if e.Near != "" {
		fmt.Fprintf(&b, "\n** near: %s", e.Near)
	}
	return b.String()
}

func (e *Error) describe() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ID
}

// failSignal is the panic payload of fail(); nothing else panics with it.
type failSignal struct{ err *Error }

func fail(e *Error) {
	panic(failSignal{e})
}

func failWith(typ, id, msg string) {
	fail(&Error{Type: typ, ID: id, Message: msg})
}

func failScan(id string, line, col int)  { fail(&Error{Type: "scan", ID: id, Line: line, Col: col}) }
func failType(id string, msg string)     { failWith("type", id, msg) }
func failBinding(id string, word string) {
	msg := id
	if word != "" {
		msg = fmt.Sprintf("%s: %s", id, word)
	}
	failWith("binding", id, msg)
}
func failAccess(id string)   { failWith("access", id, "") }
func failCapacity(id string) { failWith("capacity", id, "") }
func failDispatch(id string) { failWith("dispatch", id, "") }

// panicDiag reports a broken internal invariant.  It is a plain panic, not
// a fail: traps do not catch it.
func panicDiag(msg string) {
	panic("reb internal: " + msg)
}

// ---------------------------------------------------------------------------
// Trap
// ---------------------------------------------------------------------------

// Trap runs fn, catching fail-driven unwinds.  On a catch it rolls back
// the data stack, frees manual series allocated since entry, and restores
// the frame stack top; the collector never runs during the unwind.
func (rt *Runtime) Trap(fn func()) (err *Error) {
	manualsMark := len(rt.manuals)
	dspMark := rt.dsp
	frameMark := rt.topFrame
	guardMark := len(rt.guarded)

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		sig, ok := r.(failSignal)
		if !ok {
			panic(r)
		}
		rt.dropManualsTo(manualsMark)
		rt.dsp = dspMark
		rt.topFrame = frameMark
		rt.guarded = rt.guarded[:guardMark]
		err = sig.err
	}()
	fn()
	return nil
}

// errorContext reifies a *Error into an ERROR! context value.
func (rt *Runtime) errorContext(e *Error) *Series {
	varlist := rt.makeContext(KindError, 4)
	set := func(name, val string) {
		v := rt.ensureContextVar(varlist, rt.internSymbol(name))
		if val == "" {
			InitNull(v)
		} else {
			InitText(v, rt.manageSeries(rt.stringFrom(val)))
		}
	}
	set("type", e.Type)
	set("id", e.ID)
	set("message", e.Message)
	set("near", e.Near)
	return rt.manageSeries(varlist)
}

// errorFromContext goes the other way for user-raised errors.
func errorFromContext(varlist *Series) *Error {
	get := func(name string) string {
		// Lexical scan of the keylist; contexts are tiny here.
		for i := 1; i <= contextLen(varlist); i++ {
			if symbolText(canonOf(contextKey(varlist, i).paramSpelling())) == name {
				v := contextVar(varlist, i)
				if v.Type() == KindText {
					return string(v.series().bytes())
				}
			}
		}
		return ""
	}
	return &Error{
		Type:    orDefault(get("type"), "dispatch"),
		ID:      get("id"),
		Message: get("message"),
		Near:    get("near"),
	}
}

func orDefault(s, d string) string {
	if s == "" {
		return d
	}
	return s
}

// ---------------------------------------------------------------------------
// Caret snippet (scan errors)
// ---------------------------------------------------------------------------

// renderSnippet formats a numbered source excerpt with a caret under the
// offending column, one context line either side.
func renderSnippet(src string, line, col int, header, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	cur := lines[line-1]
	if col < 1 {
		col = 1
	}
	if col > len(cur)+1 {
		col = len(cur) + 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	num := func(n int) string { return fmt.Sprintf("%4d | ", n) }
	if line > 1 {
		b.WriteString(num(line-1) + lines[line-2] + "\n")
	}
	b.WriteString(num(line) + cur + "\n")
	b.WriteString(strings.Repeat(" ", len(num(line))+col-1) + "^\n")
	if line < len(lines) {
		b.WriteString(num(line+1) + lines[line] + "\n")
	}
	return b.String()
}
