package reb

import (
	"strings"
	"testing"
)

// doEval is the workhorse: evaluate source and compare the molded result.
func doEval(t *testing.T, rt *Runtime, source, want string) {
	t.Helper()
	got, err := rt.Do(source)
	if err != nil {
		t.Fatalf("do %q: %v", source, err)
	}
	if got != want {
		t.Fatalf("do %q = %q, want %q", source, got, want)
	}
}

func TestArithmetic(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "add 1 2", "3")
	doEval(t, rt, "subtract 10 4", "6")
	doEval(t, rt, "multiply 6 7", "42")
	doEval(t, rt, "add 1.5 2", "3.5")
	doEval(t, rt, "add 10% 20%", "30%")
}

func TestEnfixLeftToRight(t *testing.T) {
	rt := NewRuntime()
	// No precedence: operators associate strictly leftward.
	doEval(t, rt, "1 + 2 * 3", "9")
	doEval(t, rt, "10 - 4 - 3", "3")
	doEval(t, rt, "2 * 3 + 4", "10")
}

func TestSetWordAndWordLookup(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "x: 10 x + 1", "11")
	doEval(t, rt, "x: 10 y: x * 2 y", "20")
}

func TestUnboundWordFails(t *testing.T) {
	rt := NewRuntime()
	_, err := rt.Do("certainly-not-defined")
	if err == nil || err.ID != "word-not-bound" {
		t.Fatalf("want word-not-bound, got %v", err)
	}
}

func TestHardQuoting(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "the x", "x")
	doEval(t, rt, "literal some-word", "some-word")
	doEval(t, rt, "the (1 + 2)", "(1 + 2)")
}

func TestDeferredLookback(t *testing.T) {
	rt := NewRuntime()
	// THEN defers: the full left expression completes first.
	doEval(t, rt, "add 1 2 then [10]", "10")
	doEval(t, rt, "if false [1] then [2]", "null")
	doEval(t, rt, "if true [1] then [2]", "2")
}

func TestIfBranches(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "if true [42]", "42")
	doEval(t, rt, "if false [42]", "null")
	doEval(t, rt, "if 1 < 2 [42]", "42")
	doEval(t, rt, "if 1 > 2 [42]", "null")
}

func TestComparison(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "1 = 1", "true")
	doEval(t, rt, `equal? "abc" "ABC"`, "true")
	doEval(t, rt, "2 < 1", "false")
	doEval(t, rt, "2 > 1", "true")
	doEval(t, rt, "2 >= 2", "true")
	doEval(t, rt, "1 <= 0", "false")
	doEval(t, rt, "1 <> 2", "true")
	doEval(t, rt, "equal? 1 1.0", "true")
}

func TestCommentIsInvisible(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, `comment "ignored" 5`, "5")
	doEval(t, rt, `1 + 2 comment "tail"`, "3")
}

func TestRequoteConvention(t *testing.T) {
	rt := NewRuntime()
	// Evaluation sheds one quote level; whatever remains on the first
	// argument is stripped for the operation and re-applied to the result.
	doEval(t, rt, "add '3 4", "7")
	doEval(t, rt, "add ''3 4", "'7")
	doEval(t, rt, "add '''3 4", "''7")
}

func TestRequoteNullHandling(t *testing.T) {
	rt := NewRuntime()
	nullReturn := func(rt *Runtime, f *Frame) *Cell {
		return InitNull(f.out)
	}
	rt.registerNative("swallow", []paramSpec{
		{name: "value", class: paramClassNormal, types: tsNumeric},
	}, nullReturn, paramlistFlagRequotes)
	rt.registerNative("swallow-opt", []paramSpec{
		{name: "value", class: paramClassNormal,
			types: tsNumeric | typesetBit(KindNull)},
	}, nullReturn, paramlistFlagRequotes)

	// A null result sheds the requote, except for actions that admit
	// null arguments deliberately.
	doEval(t, rt, "swallow ''3", "null")
	doEval(t, rt, "swallow-opt ''3", "''null")
}

func TestCatchThrow(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "catch [throw 7 8]", "7")
	doEval(t, rt, "catch [1 2 3]", "3")
	doEval(t, rt, "catch/name [throw/name 1 'abc] 'abc", "1")

	// A named throw passes through an unnamed catch.
	_, err := rt.Do("catch [throw/name 1 'abc]")
	if err == nil || err.ID != "no-catch" {
		t.Fatalf("named throw must escape unnamed catch, got %v", err)
	}

	_, err = rt.Do("throw 3")
	if err == nil || err.ID != "no-catch" {
		t.Fatalf("uncaught throw must surface, got %v", err)
	}
}

func TestTrap(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "trap [1 + 2]", "3")

	out, err := rt.Do("trap [no-such-word]")
	if err != nil {
		t.Fatalf("trap must absorb the failure: %v", err)
	}
	if !strings.HasPrefix(out, "make error!") {
		t.Fatalf("trap of a failure yields an error context, got %q", out)
	}

	// Throws tunnel through TRAP untouched.
	doEval(t, rt, "catch [trap [throw 9]]", "9")
}

func TestEvalNative(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "eval [1 + 2]", "3")
	doEval(t, rt, "x: [3 * 4] eval x", "12")
}

func TestGroupsEvaluate(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "(1 + 2) * 3", "9")
	doEval(t, rt, "add (multiply 2 3) 4", "10")
}

func TestVariadicTake(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "take 5", "5")
	doEval(t, rt, "take 1 + 2", "3")
	doEval(t, rt, "add take 5 10", "15")
}

func TestMoldFormNatives(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "mold [1 2]", `"[1 2]"`)
	doEval(t, rt, `form "abc"`, `"abc"`)
	doEval(t, rt, "mold ''x", `"'x"`)
}

func TestWaitZeroReturnsImmediately(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "wait 0", "null")
}

func TestPathPickInteger(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "x: [10 20 30] x/2", "20")
	doEval(t, rt, "x: [10 20 30] x/9", "null")
}

func TestSetPathPoke(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "x: [10 20 30] x/2: 99 x/2", "99")
}

func TestFreezeBlocksMutation(t *testing.T) {
	rt := NewRuntime()
	_, err := rt.Do("x: [1 2 3] freeze x x/1: 9")
	if err == nil || err.ID != "series-frozen" {
		t.Fatalf("poke into frozen block must fail, got %v", err)
	}
}

func TestProtectUnprotect(t *testing.T) {
	rt := NewRuntime()
	_, err := rt.Do("x: [1 2] protect x x/1: 9")
	if err == nil || err.ID != "series-protected" {
		t.Fatalf("poke into protected block must fail, got %v", err)
	}
	doEval(t, rt, "y: [1 2] protect y unprotect y y/1: 9 y/1", "9")
}

func TestRecycleNativeReturnsCount(t *testing.T) {
	rt := NewRuntime()
	out, err := rt.Do("recycle")
	if err != nil {
		t.Fatalf("recycle: %v", err)
	}
	if out == "" {
		t.Fatalf("recycle must mold an integer count")
	}
}

func TestToConversions(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, `to integer! "42"`, "42")
	doEval(t, rt, "to integer! 3.7", "3")
	doEval(t, rt, "to integer! #FF", "255")
	doEval(t, rt, `to integer! #"A"`, "65")
	doEval(t, rt, "to decimal! 1", "1.0")
	doEval(t, rt, `to decimal! "50%"`, "0.5")
	doEval(t, rt, "to percent! 0.5", "50%")
	doEval(t, rt, "to char! 65", `#"A"`)
	doEval(t, rt, "to logic! 0", "false")
	doEval(t, rt, "to logic! 7", "true")
	doEval(t, rt, `to time! 90`, "0:01:30")
	doEval(t, rt, `to tuple! "1.2.3"`, "1.2.3")
	doEval(t, rt, "to text! 123", `"123"`)
	doEval(t, rt, "to block! the (1 2)", "[1 2]")
	doEval(t, rt, `to binary! "hi"`, "#{6869}")

	_, err := rt.Do(`to integer! "abc"`)
	if err == nil || err.ID != "bad-conversion" {
		t.Fatalf("text that is no integer must fail, got %v", err)
	}
}

func TestMakeComposites(t *testing.T) {
	rt := NewRuntime()
	doEval(t, rt, "mold make object! [a: 1]", `"make object! [a: 1]"`)
	doEval(t, rt, "e: make event! [type: down offset: 3x4 double: true] e/x", "3")
	doEval(t, rt, "e: make event! [type: key code: 65] e/code", "65")
	doEval(t, rt, "i: make image! [2x1 #{01020304 05060708}] i/width", "2")
	doEval(t, rt, "i: make image! [1x1 #{01020300}] i/1", "1.2.3.0")

	_, err := rt.Do("make event! [offset: 5]")
	if err == nil || err.ID != "make-event-spec" {
		t.Fatalf("bad event spec must fail, got %v", err)
	}
}
