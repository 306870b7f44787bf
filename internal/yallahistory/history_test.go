package yallahistory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddIgnoresBlankAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "hist"), 100, true)

	m.Add("")
	m.Add("ls")
	m.Add("ls")
	m.Add("pwd")

	require.Equal(t, []string{"ls", "pwd"}, m.All())
}

func TestAddRespectsMaxEntries(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "hist"), 2, false)

	m.Add("a")
	m.Add("b")
	m.Add("c")

	require.Equal(t, []string{"b", "c"}, m.All())
	require.LessOrEqual(t, m.Len(), 2)
}

func TestPreviousNextNavigation(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "hist"), 100, false)
	m.Add("one")
	m.Add("two")
	m.Add("three")

	require.Equal(t, "three", m.Previous())
	require.Equal(t, "two", m.Previous())
	require.Equal(t, "one", m.Previous())
	require.Equal(t, "one", m.Previous()) // stays at head

	require.Equal(t, "two", m.Next())
	require.Equal(t, "three", m.Next())
	require.Equal(t, "", m.Next()) // past the end returns sentinel
}

func TestSearchPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "hist"), 100, false)
	m.Add("git status")
	m.Add("git commit")
	m.Add("ls -la")

	require.Equal(t, []string{"git status", "git commit"}, m.Search("git"))
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "hist")

	m := New(path, 100, false)
	m.Add("echo hi")
	m.Add("echo bye")

	reloaded := New(path, 100, false)
	require.Equal(t, []string{"echo hi", "echo bye"}, reloaded.All())
}

func TestClearRemovesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hist")
	m := New(path, 100, false)
	m.Add("a")

	require.NoError(t, m.Clear())
	require.Equal(t, 0, m.Len())

	reloaded := New(path, 100, false)
	require.Equal(t, 0, reloaded.Len())
}

func TestMissingFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "does-not-exist"), 100, false)
	require.Equal(t, 0, m.Len())
}
