package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-cflow/internal/log"
	"github.com/l3aro/go-cflow/pkg/cfg"
	"github.com/l3aro/go-cflow/pkg/dfg"
)

func newCache(t *testing.T, opts Options) *ForestCache {
	t.Helper()
	opts.Logger = log.Nop()
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func sampleForest(name string) *cfg.Forest {
	return &cfg.Forest{Units: []*cfg.Unit{{
		Kind: cfg.UnitFunction,
		Name: name,
		Line: 1,
		Blocks: []*cfg.Block{
			{ID: 0, Type: cfg.BlockTypeEntry, Code: []string{"int " + name + "(int a)"}, Succs: []int{2}, Children: []int{2, 1}, Defs: []string{"a"}, Entry: true},
			{ID: 1, Type: cfg.BlockTypeExit, Code: []string{"exit"}, Exit: true},
			{ID: 2, Type: cfg.BlockTypeReturn, Line: 1, Code: []string{"return a"}, Succs: []int{1}, Uses: []string{"a"}},
		},
		Roots: []int{0},
		Paths: dfg.Record{"a": dfg.Path{
			{Kind: dfg.KindLeaf, Node: 0, Mode: dfg.ModeDefined},
			{Kind: dfg.KindLeaf, Node: 2, Mode: dfg.ModeUsed},
		}},
	}}}
}

// summary renders the observable content of a forest so that nil and empty
// slices compare equal.
func summary(f *cfg.Forest) string {
	var sb strings.Builder
	for _, u := range f.Units {
		fmt.Fprintf(&sb, "%s %s %d %q\n", u.Kind, u.Name, u.Line, u.Error)
		for _, b := range u.Blocks {
			fmt.Fprintf(&sb, "  %d %s %v %v %v %v %v %v\n", b.ID, b.Type, b.Code, b.Succs, b.Children, b.Defs, b.Uses, b.Entry || b.Exit)
		}
		for _, v := range u.Paths.Vars() {
			fmt.Fprintf(&sb, "  %s: %s\n", v, u.Paths[v])
		}
	}
	return sb.String()
}

func TestKey(t *testing.T) {
	a := Key([]byte("int x;"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Key([]byte("int x;")))
	assert.NotEqual(t, a, Key([]byte("int y;")))
	assert.NotEqual(t, a, Key([]byte("int x;"), "v2"))
	assert.NotEqual(t, Key([]byte("ab"), "c"), Key([]byte("a"), "bc"))
}

func TestGetPut(t *testing.T) {
	c := newCache(t, Options{MaxEntries: 4})

	_, err := c.Get("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	forest := sampleForest("f")
	require.NoError(t, c.Put("k", forest))

	got, err := c.Get("k")
	require.NoError(t, err)
	assert.Same(t, forest, got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestEviction(t *testing.T) {
	c := newCache(t, Options{MaxEntries: 2})

	require.NoError(t, c.Put("a", sampleForest("a")))
	require.NoError(t, c.Put("b", sampleForest("b")))

	// Touch a so that b becomes least recently used.
	_, err := c.Get("a")
	require.NoError(t, err)

	require.NoError(t, c.Put("c", sampleForest("c")))
	assert.Equal(t, 2, c.Len())

	_, err = c.Get("b")
	assert.ErrorIs(t, err, ErrKeyNotFound, "b should have been evicted")
	_, err = c.Get("a")
	assert.NoError(t, err)
	_, err = c.Get("c")
	assert.NoError(t, err)
}

func TestDiskPersistence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	first := newCache(t, Options{MaxEntries: 1, Dir: dir})

	forest := sampleForest("f")
	require.NoError(t, first.Put("k", forest))
	assert.FileExists(t, filepath.Join(dir, "k.msgpack"))

	second := newCache(t, Options{MaxEntries: 1, Dir: dir})
	got, err := second.Get("k")
	require.NoError(t, err)
	assert.Equal(t, summary(forest), summary(got))
	assert.Equal(t, int64(1), second.Stats().DiskHits)

	require.NoError(t, second.Delete("k"))
	assert.NoFileExists(t, filepath.Join(dir, "k.msgpack"))
	_, err = second.Get("k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestCorruptDiskEntry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.msgpack"), []byte{0xc1, 0x00}, 0644))

	c := newCache(t, Options{Dir: dir})
	_, err := c.Get("bad")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestFailedUnitSurvivesRoundTrip(t *testing.T) {
	forest := &cfg.Forest{Units: []*cfg.Unit{{
		Kind:  cfg.UnitFunction,
		Name:  "g",
		Line:  3,
		Error: "invalid control transfer continue at line 4: not inside a loop",
	}}}

	c := newCache(t, Options{Dir: t.TempDir()})
	require.NoError(t, c.Put("k", forest))

	reopened := newCache(t, Options{Dir: c.opts.Dir})
	got, err := reopened.Get("k")
	require.NoError(t, err)
	require.Len(t, got.Units, 1)
	assert.False(t, got.Units[0].OK())
	assert.Len(t, got.Failed(), 1)
	assert.ErrorContains(t, got.Err(), "not inside a loop")
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	c := newCache(t, Options{Dir: dir})
	require.NoError(t, c.Put("a", sampleForest("a")))
	require.NoError(t, c.Put("b", sampleForest("b")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0644))

	removed, err := c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Zero(t, c.Len())
	assert.NoFileExists(t, filepath.Join(dir, "a.msgpack"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))

	_, err = c.Get("a")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestClearMemoryOnly(t *testing.T) {
	c := newCache(t, Options{})
	require.NoError(t, c.Put("a", sampleForest("a")))

	removed, err := c.Clear()
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Zero(t, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := newCache(t, Options{MaxEntries: 8})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			_ = c.Put(key, sampleForest(key))
			_, _ = c.Get(key)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 8)
}
