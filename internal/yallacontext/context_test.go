package yallacontext

import (
	"bytes"
	"io"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atinylittleshell/yalla/internal/yallaconfig"
)

func TestBuiltinCommandsAreRegistered(t *testing.T) {
	c := New(yallaconfig.Default())
	for _, name := range []string{"help", "exit", "clear", "history", "vars", "imports", "mode"} {
		_, ok := c.Command(name)
		require.True(t, ok, "expected built-in %q to be registered", name)
	}
}

func TestExitStopsSession(t *testing.T) {
	c := New(yallaconfig.Default())
	handler, ok := c.Command("exit")
	require.True(t, ok)

	var out bytes.Buffer
	require.True(t, c.Running())
	require.False(t, handler(nil, &out, c))
}

func TestModeRejectsUnknownValue(t *testing.T) {
	c := New(yallaconfig.Default())
	handler, _ := c.Command("mode")

	var out bytes.Buffer
	handler([]string{"bogus"}, &out, c)
	require.Contains(t, out.String(), "unknown mode")
	require.Equal(t, "compact", c.Config().GetString("display.mode", ""))

	out.Reset()
	handler([]string{"json"}, &out, c)
	require.Equal(t, "json", c.Config().GetString("display.mode", ""))
}

func TestShortcutExpansionThreeForms(t *testing.T) {
	c := New(yallaconfig.Default())
	c.AddShortcut("Foo", "app.models.Foo")

	require.Equal(t, "app.models.Foo::bar()", c.ProcessInput("Foo::bar()"))
	require.Equal(t, "x := new app.models.Foo()", c.ProcessInput("x := new Foo()"))
	require.Equal(t, "app.models.Foo::class", c.ProcessInput("Foo::class"))
}

func TestShortcutExpansionIsWordBounded(t *testing.T) {
	c := New(yallaconfig.Default())
	c.AddShortcut("Foo", "app.models.Foo")

	require.Equal(t, "MyFoo::bar()", c.ProcessInput("MyFoo::bar()"))
}

func TestNamespaceExpansion(t *testing.T) {
	c := New(yallaconfig.Default())
	c.AddNamespace("db", "app.storage.database")

	require.Equal(t, "app.storage.database.Query()", c.ProcessInput("db.Query()"))
}

func TestInputMiddlewareRunsInInsertionOrder(t *testing.T) {
	c := New(yallaconfig.Default())
	var order []int
	c.AddInputMiddleware(func(data any, ctx *Context) any {
		order = append(order, 1)
		return data
	})
	c.AddInputMiddleware(func(data any, ctx *Context) any {
		order = append(order, 2)
		return data
	})

	c.ProcessInput("noop")
	require.Equal(t, []int{1, 2}, order)
}

func TestEvaluatorsStayPriorityOrderedOnInsert(t *testing.T) {
	c := New(yallaconfig.Default())
	c.AddEvaluator("low", nopEvaluator, 10)
	c.AddEvaluator("high", nopEvaluator, 100)
	c.AddEvaluator("mid", nopEvaluator, 50)

	names := make([]string, 0, 3)
	for _, e := range c.Evaluators() {
		names = append(names, e.Name)
	}
	require.Equal(t, []string{"high", "mid", "low"}, names)
}

func nopEvaluator(line string, ctx *Context) (bool, any, error) { return false, nil, nil }

func TestFormatterExactMatchWinsOverInterface(t *testing.T) {
	c := New(yallaconfig.Default())

	type stringer interface{ String() string }
	stringerType := reflect.TypeOf((*stringer)(nil)).Elem()
	intType := reflect.TypeOf(0)

	c.RegisterFormatter(stringerType, func(v any, out io.Writer) error {
		_, err := out.Write([]byte("via-interface"))
		return err
	})
	c.RegisterFormatter(intType, func(v any, out io.Writer) error {
		_, err := out.Write([]byte("via-exact"))
		return err
	})

	fn, ok := c.FormatterFor(42)
	require.True(t, ok)
	var buf bytes.Buffer
	require.NoError(t, fn(42, &buf))
	require.Equal(t, "via-exact", buf.String())
}

func TestCompletionCandidatesRankByPrefix(t *testing.T) {
	c := New(yallaconfig.Default())
	c.AddShortcut("Foo", "app.Foo")
	c.SetVariable("fooBar", 1)

	matches := c.CompletionCandidates("fo", nil, 10)
	require.Contains(t, matches, "Foo")
	require.Contains(t, matches, "$fooBar")
}
