// action.go
//
// An action is a callable value: a paramlist (its signature), a dispatcher,
// and optionally a specialization exemplar.  The paramlist is an array
// whose element 0 is the archetypal ACTION! cell and whose remaining cells
// are parameter typesets carrying a symbol and a parameter class.  The
// paramlist's link slot holds the underlying paramlist (shared by
// frame-compatible siblings, checked on REDO); its misc slot holds the
// dispatcher.

package reb

type paramClass uint8

const (
	paramClassNormal paramClass = iota
	paramClassHard              // take the argument literally, unevaluated
	paramClassSoft              // literal, but groups evaluate
	paramClassModal             // soft with a mode signal to the action
	paramClassRefinement
	paramClassLocal
	paramClassReturn
	paramClassVariadic
)

// Per-action behavior flags, on the paramlist header.
const (
	paramlistFlagDefersLookback uint64 = 1 << 21 // enfix that waits for a full left expression
	paramlistFlagRequotes       uint64 = 1 << 22 // re-apply first-arg quoting to the result
	paramlistFlagInvisible      uint64 = 1 << 23 // result leaves out cell untouched
)

type dispatcher func(rt *Runtime, f *Frame) *Cell

// Dispatcher return sentinels.  A dispatcher returns f.out, or one of
// these to signal a throw, a tail-call re-entry, or invisibility.
var (
	throwSentinel     = &Cell{header: nodeFlagNode | nodeFlagCell}
	redoSentinel      = &Cell{header: nodeFlagNode | nodeFlagCell}
	invisibleSentinel = &Cell{header: nodeFlagNode | nodeFlagCell}
)

type paramSpec struct {
	name  string
	class paramClass
	types uint64
}

// makeAction builds a paramlist for a native dispatcher.
func (rt *Runtime) makeAction(name string, params []paramSpec, disp dispatcher, flags uint64) *Series {
	paramlist := rt.makeArray(len(params)+1, seriesFlagIsParamlist|nodeFlagManaged|flags)

	archetype := &Cell{}
	InitAction(archetype, paramlist, nil)
	rt.appendCell(paramlist, archetype)

	for _, p := range params {
		c := &Cell{}
		InitParam(c, p.class, rt.internSymbol(p.name), p.types)
		rt.appendCell(paramlist, c)
	}

	paramlist.misc.p = disp
	paramlist.link.node = paramlist // its own underlying
	paramlist.setFlag(seriesFlagLinkNodeNeedsMark)
	rt.registerActionLabel(paramlist, name)
	return paramlist
}

func actionDispatcher(paramlist *Series) dispatcher {
	d, ok := paramlist.misc.p.(dispatcher)
	if !ok || d == nil {
		failDispatch("action-has-no-dispatcher")
	}
	return d
}

func actionUnderlying(paramlist *Series) *Series { return paramlist.link.node }

// actionAcceptsNull reports whether the first fulfillable parameter
// admits a null argument.
func actionAcceptsNull(paramlist *Series) bool {
	for i := 1; i < paramlist.Len(); i++ {
		p := paramlist.at(i)
		switch p.paramClass() {
		case paramClassRefinement, paramClassLocal, paramClassReturn:
			continue
		}
		return p.paramTypes()&typesetBit(KindNull) != 0
	}
	return false
}

func numParams(paramlist *Series) int { return paramlist.Len() - 1 }

// actionLabels are debug/mold names for natives; actions invoked through
// words get their label from the callsite instead.
func (rt *Runtime) registerActionLabel(paramlist *Series, name string) {
	rt.actionNames[paramlist] = name
}

func (rt *Runtime) actionLabel(paramlist *Series) string {
	if n, ok := rt.actionNames[paramlist]; ok {
		return n
	}
	return "anonymous"
}

// ---------------------------------------------------------------------------
// Specialization
// ---------------------------------------------------------------------------

// specializeAction builds a new action from a base plus a set of filled
// arguments.  The exemplar is a FRAME! varlist parallel to the paramlist;
// filled cells are flagged ARG_MARKED_CHECKED so fulfillment copies them
// as hidden.  Refinements committed to an order are stored as SYM-WORD!
// sentinels, pushed to the data stack ahead of callsite refinements during
// frame setup (callsite wins only for unspecialized slots).
func (rt *Runtime) specializeAction(base *Cell, fills map[string]*Cell, ordered []string) *Cell {
	paramlist := base.actionParamlist()
	exemplar := rt.makeContext(KindFrame, numParams(paramlist))
	ex := exemplar
	// Parallel slots: copy the key symbols from the paramlist.
	for i := 1; i <= numParams(paramlist); i++ {
		param := paramlist.at(i)
		v := rt.appendContextKey(ex, param.paramSpelling())
		name := symbolText(canonOf(param.paramSpelling()))
		if fill, ok := fills[name]; ok {
			copyCell(v, fill)
			v.setFlag(cellFlagArgMarkedChecked)
			if !typecheckCell(v.unquotedCell(), param.paramTypes()) &&
				param.paramClass() != paramClassRefinement {
				failType("specialize-arg-type", name)
			}
		}
	}
	for _, name := range ordered {
		idx := findContextIndex(ex, rt.internSymbol(name))
		if idx == 0 {
			failDispatch("specialize-unknown-refinement")
		}
		v := contextVar(ex, idx)
		InitSymWord(v, rt.internSymbol(name))
		// Deliberately NOT marked checked: fulfillment treats the
		// sym-word as an ordering sentinel, not a final value.
	}
	rt.manageSeries(exemplar)

	out := &Cell{}
	InitAction(out, paramlist, exemplar)
	out.setBinding(base.binding())
	return out
}

// exemplarOf returns the specialization exemplar of an action cell, nil
// for unspecialized actions.
func exemplarOf(action *Cell) *Series {
	d := action.actionDetails()
	if d != nil && d.isVarlist() {
		return d
	}
	return nil
}

// frameCompatible checks whether two actions share an underlying
// paramlist, the requirement for a REDO phase swap.
func frameCompatible(a, b *Series) bool {
	return actionUnderlying(a) == actionUnderlying(b)
}
