package yallasession

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/atinylittleshell/yalla/internal/yallaconfig"
	"github.com/atinylittleshell/yalla/internal/yallacontext"
	"github.com/atinylittleshell/yalla/internal/yallaeval"
	"github.com/atinylittleshell/yalla/internal/yallarender"
)

func newTestSession(t *testing.T) (*Session, *bytes.Buffer) {
	t.Helper()
	cfg := yallaconfig.Default()
	ctx := yallacontext.New(cfg)
	out := &bytes.Buffer{}

	s := New(Options{
		Context:   ctx,
		Renderer:  yallarender.New(false),
		Evaluator: yallaeval.NewGoEvaluator(false),
		Out:       out,
	})
	return s, out
}

func TestBuildPromptSubstitutesCounter(t *testing.T) {
	s, _ := newTestSession(t)
	s.ctx.Config().Set("display.prompt", "[{counter}]> ")

	s.counter = 3
	if got, want := s.buildPrompt(), "[3]> "; got != want {
		t.Fatalf("buildPrompt() = %q, want %q", got, want)
	}
}

func TestHandleAssignmentStoresVariable(t *testing.T) {
	s, out := newTestSession(t)
	s.handleLine(nil, "$x = 40 + 2")

	v, ok := s.ctx.GetVariable("x")
	if !ok {
		t.Fatal("expected $x to be stored in context")
	}
	if v != int64(42) && v != 42 {
		t.Fatalf("stored value = %v (%T), want 42", v, v)
	}
	if out.Len() == 0 {
		t.Fatal("expected rendered output for assignment result")
	}
}

func TestHandleExpressionReadsVariableSigil(t *testing.T) {
	s, out := newTestSession(t)
	s.handleLine(nil, "$x = 5")
	out.Reset()

	s.handleLine(nil, "$x + 3")

	if !strings.Contains(out.String(), "8") {
		t.Fatalf("output = %q, want it to contain 8 ($x + 3 read back as a bound identifier)", out.String())
	}
}

func TestHandleExpressionRendersResult(t *testing.T) {
	s, out := newTestSession(t)
	s.handleLine(nil, `"hello"`)

	if !strings.Contains(out.String(), "hello") {
		t.Fatalf("output = %q, want it to contain hello", out.String())
	}
}

func TestHandleLineUnknownCommandSuggestsClosest(t *testing.T) {
	s, out := newTestSession(t)
	s.handleLine(nil, ":exitt")

	got := out.String()
	if !strings.Contains(got, "unknown command") {
		t.Fatalf("output = %q, want an unknown command error", got)
	}
	if !strings.Contains(got, "did you mean: :exit?") {
		t.Fatalf("output = %q, want a did-you-mean suggestion for :exit", got)
	}
}

func TestHandleLineRecoversFromPanic(t *testing.T) {
	s, _ := newTestSession(t)
	s.ctx.RegisterCommand("boom", func(args []string, out io.Writer, ctx *yallacontext.Context) bool {
		panic("kaboom")
	})

	// handleLine must not propagate the panic to the caller.
	s.handleLine(nil, ":boom")
}

func TestClosestCommandThreshold(t *testing.T) {
	candidates := []string{"exit", "help", "history", "vars"}

	if got, ok := closestCommand("exitt", candidates); !ok || got != "exit" {
		t.Fatalf("closestCommand(exitt) = (%q, %v), want (exit, true)", got, ok)
	}
	if _, ok := closestCommand("zzzzzzzz", candidates); ok {
		t.Fatal("closestCommand(zzzzzzzz) should not find a match above threshold")
	}
}

func TestBindingsUnionsLocalAndContextVars(t *testing.T) {
	s, _ := newTestSession(t)
	s.ctx.SetVariable("a", 1)
	s.localVars["b"] = 2
	s.localVars["a"] = 99 // session-local should win on collision

	bound := s.bindings()
	if bound["a"] != 99 {
		t.Fatalf("bindings()[a] = %v, want 99 (local should win)", bound["a"])
	}
	if bound["b"] != 2 {
		t.Fatalf("bindings()[b] = %v, want 2", bound["b"])
	}
}

func TestHandleExpressionPromotesNewBindings(t *testing.T) {
	s, _ := newTestSession(t)
	s.handleLine(nil, "y := 40 + 2")

	if s.localVars["y"] != 42 {
		t.Fatalf("localVars[y] = %v, want 42 to be promoted per spec.md step 5d", s.localVars["y"])
	}
}

func TestFilepathBase(t *testing.T) {
	if got := filepathBase("/home/user/project"); got != "project" {
		t.Fatalf("filepathBase = %q, want project", got)
	}
	if got := filepathBase(""); got != "" {
		t.Fatalf("filepathBase(\"\") = %q, want empty", got)
	}
}
