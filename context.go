// context.go
//
// A context is a keylist/varlist pair of specialized arrays, length
// matched, with the varlist's element 0 holding the archetype cell that
// identifies the context itself.  Objects, frames, modules, errors, and
// ports are all contexts; only the archetype kind differs.

package reb

// makeContext builds an empty context of the given kind with room for
// capacity keys.  Indices into a context are 1-based; slot 0 of the
// keylist is a placeholder so key and var indices line up.
func (rt *Runtime) makeContext(kind Kind, capacity int) *Series {
	keylist := rt.makeArray(capacity+1, seriesFlagIsKeylist|nodeFlagManaged)
	varlist := rt.makeArray(capacity+1, seriesFlagIsVarlist)

	rt.appendCell(keylist, InitBlank(&Cell{}))

	archetype := &Cell{}
	archetype.reset(kind, cellFlagFirstIsNode)
	archetype.first.node = varlist
	rt.appendCell(varlist, archetype)

	varlist.link.node = keylist
	varlist.setFlag(seriesFlagLinkNodeNeedsMark)
	return varlist
}

func contextKeylist(varlist *Series) *Series {
	if !varlist.isVarlist() {
		panicDiag("contextKeylist on non-varlist")
	}
	return varlist.link.node
}

func contextArchetype(varlist *Series) *Cell { return varlist.at(0) }

// contextLen is the number of keys (archetype and placeholder excluded).
func contextLen(varlist *Series) int { return varlist.Len() - 1 }

// contextKey / contextVar use 1-based indices.
func contextKey(varlist *Series, index int) *Cell {
	return contextKeylist(varlist).at(index)
}

func contextVar(varlist *Series, index int) *Cell {
	if varlist.getInfo(infoFlagInaccessible) {
		failAccess("context-inaccessible")
	}
	return varlist.at(index)
}

// appendContextKey grows both arrays by one slot, returning the new var
// cell (initialized to null).  The key is a typeset cell admitting any
// value.
func (rt *Runtime) appendContextKey(varlist *Series, sym *Series) *Cell {
	keylist := contextKeylist(varlist)
	key := &Cell{}
	InitParam(key, paramClassNormal, sym, tsAnyValue)
	rt.appendCell(keylist, key)
	v := rt.appendCell(varlist, InitNull(&Cell{}))
	return v
}

// findContextIndex scans the keylist for a spelling (case-insensitive),
// returning the 1-based index or 0.
func findContextIndex(varlist *Series, sym *Series) int {
	keylist := contextKeylist(varlist)
	canon := canonOf(sym)
	for i := 1; i < keylist.Len(); i++ {
		if canonOf(keylist.at(i).paramSpelling()) == canon {
			return i
		}
	}
	return 0
}

// selectContext resolves a spelling to its var cell, or nil.
func selectContext(varlist *Series, sym *Series) *Cell {
	idx := findContextIndex(varlist, sym)
	if idx == 0 {
		return nil
	}
	return contextVar(varlist, idx)
}

// ensureContextVar finds or appends a slot for a spelling.
func (rt *Runtime) ensureContextVar(varlist *Series, sym *Series) *Cell {
	if v := selectContext(varlist, sym); v != nil {
		return v
	}
	return rt.appendContextKey(varlist, sym)
}

// makeObjectFromPairs builds an object context from a spec block of
// set-word/value pairs, evaluating nothing (scanner-level construction).
func (rt *Runtime) makeObjectFromPairs(pairs []*Cell) *Series {
	varlist := rt.makeContext(KindObject, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		sw := pairs[i]
		if sw.Heart() != KindSetWord {
			failDispatch("object-spec-needs-set-words")
		}
		v := rt.ensureContextVar(varlist, sw.wordSpelling())
		copyCell(v, pairs[i+1])
	}
	return rt.manageSeries(varlist)
}
