package yallaeval

import "testing"

func TestGoEvaluatorEvalExpression(t *testing.T) {
	e := NewGoEvaluator(false)

	result, err := e.Eval("2 + 2", nil, nil, nil)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if result != 4 {
		t.Fatalf("Eval(2 + 2) = %v, want 4", result)
	}
}

func TestGoEvaluatorEvalWithBindings(t *testing.T) {
	e := NewGoEvaluator(false)

	result, err := e.Eval("x + 3", map[string]any{"x": 5}, nil, nil)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if result != 8 {
		t.Fatalf("Eval(x + 3) = %v, want 8", result)
	}
}

func TestGoEvaluatorDeclaredBindingsPromoted(t *testing.T) {
	e := NewGoEvaluator(false)

	newBindings, _, err := e.EvalWithBindings("y := 41 + 1", nil, nil, nil)
	if err != nil {
		t.Fatalf("EvalWithBindings() error = %v", err)
	}
	if newBindings["y"] != 42 {
		t.Fatalf("newBindings[y] = %v, want 42", newBindings["y"])
	}
}

func TestGoEvaluatorBlockedFunctionRejected(t *testing.T) {
	e := NewGoEvaluator(false)

	_, err := e.Eval("dangerous()", nil, nil, []string{"dangerous"})
	if err == nil {
		t.Fatal("expected a blocked-call error")
	}
}

func TestGoEvaluatorSandboxRestrictsStdlib(t *testing.T) {
	e := NewGoEvaluator(true)

	result, err := e.Eval("1 + 1", nil, nil, nil)
	if err != nil {
		t.Fatalf("Eval() under sandbox error = %v", err)
	}
	if result != 2 {
		t.Fatalf("Eval(1 + 1) under sandbox = %v, want 2", result)
	}
}
