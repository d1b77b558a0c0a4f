package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-cflow/internal/config"
	"github.com/l3aro/go-cflow/internal/log"
	"github.com/l3aro/go-cflow/internal/scanner"
	"github.com/l3aro/go-cflow/pkg/report"
)

const incr = "int f(int a)\n{\n\tint b = a + 1;\n\treturn b;\n}\n"

func newTestAnalyzer(t *testing.T, cacheDir string) *analyzer {
	t.Helper()
	conf := config.DefaultConfig()
	conf.CacheDir = cacheDir
	a, err := newAnalyzer(conf, log.Nop())
	require.NoError(t, err)
	return a
}

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestWriteReportText(t *testing.T) {
	path := writeSource(t, t.TempDir(), "incr.c", incr)
	a := newTestAnalyzer(t, "")

	var buf bytes.Buffer
	require.NoError(t, a.writeReport(context.Background(), &buf, path, config.FormatText, report.Options{ShowCode: true}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "=== function f (line 1) ===\n[0] entry -> 3\n    int f(int a)\n"), out)
	assert.Contains(t, out, "complexity: 1\n")
	assert.Contains(t, out, "b:\t\t3|d -> 2|u\n")
}

func TestWriteReportJSON(t *testing.T) {
	path := writeSource(t, t.TempDir(), "incr.c", incr)
	a := newTestAnalyzer(t, "")

	var buf bytes.Buffer
	require.NoError(t, a.writeReport(context.Background(), &buf, path, config.FormatJSON, report.Options{}))

	var doc struct {
		File   string `json:"file"`
		Failed int    `json:"failed"`
		Units  []struct {
			Complexity int `json:"complexity"`
		} `json:"units"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, path, doc.File)
	assert.Zero(t, doc.Failed)
	require.Len(t, doc.Units, 1)
	assert.Equal(t, 1, doc.Units[0].Complexity)
}

func TestWriteReportMsgpack(t *testing.T) {
	path := writeSource(t, t.TempDir(), "incr.c", incr)
	a := newTestAnalyzer(t, "")

	var buf bytes.Buffer
	require.NoError(t, a.writeReport(context.Background(), &buf, path, config.FormatMsgpack, report.Options{}))

	doc, err := report.ReadMsgpack(&buf)
	require.NoError(t, err)
	require.Len(t, doc.Units, 1)
	assert.Equal(t, "f", doc.Units[0].Unit.Name)
}

func TestWriteReportUsesMemoryCache(t *testing.T) {
	path := writeSource(t, t.TempDir(), "incr.c", incr)
	a := newTestAnalyzer(t, "")

	var first, second bytes.Buffer
	require.NoError(t, a.writeReport(context.Background(), &first, path, config.FormatText, report.Options{ShowCode: true}))
	require.NoError(t, a.writeReport(context.Background(), &second, path, config.FormatText, report.Options{ShowCode: true}))

	assert.Equal(t, first.String(), second.String())
	stats := a.cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestWriteReportUsesDiskCache(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "incr.c", incr)
	cacheDir := filepath.Join(dir, "cache")

	var first bytes.Buffer
	require.NoError(t, newTestAnalyzer(t, cacheDir).writeReport(context.Background(), &first, path, config.FormatText, report.Options{}))

	a := newTestAnalyzer(t, cacheDir)
	var second bytes.Buffer
	require.NoError(t, a.writeReport(context.Background(), &second, path, config.FormatText, report.Options{}))

	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, int64(1), a.cache.Stats().DiskHits)
}

func TestWriteReportFailedUnits(t *testing.T) {
	src := "void jump(void)\n{\n\tgoto end;\nend:\n\treturn;\n}\n" + incr
	path := writeSource(t, t.TempDir(), "mixed.c", src)
	a := newTestAnalyzer(t, "")

	var buf bytes.Buffer
	err := a.writeReport(context.Background(), &buf, path, config.FormatText, report.Options{})
	require.ErrorIs(t, err, ErrUnitsFailed)
	assert.Contains(t, err.Error(), "1 of 2 units")

	out := buf.String()
	assert.Contains(t, out, "=== function jump (line 1) ===\nerror: unsupported construct")
	assert.Contains(t, out, "=== function f (line 7) ===")
}

func TestWriteReportSingleFunction(t *testing.T) {
	src := "void jump(void)\n{\n\tgoto end;\nend:\n\treturn;\n}\n" + incr
	path := writeSource(t, t.TempDir(), "mixed.c", src)
	a := newTestAnalyzer(t, "")
	a.function = "f"

	var buf bytes.Buffer
	require.NoError(t, a.writeReport(context.Background(), &buf, path, config.FormatText, report.Options{}))
	assert.True(t, strings.HasPrefix(buf.String(), "=== function f (line 7) ===
"), buf.String())
	assert.NotContains(t, buf.String(), "jump")

	// The cached forest still holds every unit.
	a.function = ""
	err := a.writeReport(context.Background(), &bytes.Buffer{}, path, config.FormatText, report.Options{})
	assert.ErrorIs(t, err, ErrUnitsFailed)
}

func TestWriteReportUnknownFunction(t *testing.T) {
	src := "void jump(void)\n{\n\tgoto end;\nend:\n\treturn;\n}\n" + incr
	path := writeSource(t, t.TempDir(), "mixed.c", src)
	a := newTestAnalyzer(t, "")
	a.function = "main"

	var buf bytes.Buffer
	err := a.writePaths(context.Background(), &buf, path, "")
	require.ErrorIs(t, err, ErrNoSuchFunction)
	assert.ErrorContains(t, err, `"main" (functions: jump, f)`)
	assert.Empty(t, buf.String())
}

func TestClearCache(t *testing.T) {
	dir := t.TempDir()
	incrPath := writeSource(t, dir, "incr.c", incr)
	otherPath := writeSource(t, dir, "other.c", "int g(void)\n{\n\treturn 0;\n}\n")
	cacheDir := filepath.Join(dir, "cache")

	warm := newTestAnalyzer(t, cacheDir)
	for _, path := range []string{incrPath, otherPath} {
		require.NoError(t, warm.writeReport(context.Background(), &bytes.Buffer{}, path, config.FormatText, report.Options{}))
	}

	a := newTestAnalyzer(t, cacheDir)
	removed, err := a.clearCache([]string{incrPath})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	require.NoError(t, a.writeReport(context.Background(), &bytes.Buffer{}, incrPath, config.FormatText, report.Options{}))
	require.NoError(t, a.writeReport(context.Background(), &bytes.Buffer{}, otherPath, config.FormatText, report.Options{}))
	stats := a.cache.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.DiskHits)

	removed, err = a.clearCache(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	entries, err := filepath.Glob(filepath.Join(cacheDir, "*.msgpack"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClearCacheMissingFile(t *testing.T) {
	a := newTestAnalyzer(t, t.TempDir())
	_, err := a.clearCache([]string{filepath.Join(t.TempDir(), "nope.c")})
	assert.ErrorContains(t, err, "reading file")
}

func TestWriteReportMissingFile(t *testing.T) {
	a := newTestAnalyzer(t, "")
	err := a.writeReport(context.Background(), &bytes.Buffer{}, filepath.Join(t.TempDir(), "nope.c"), config.FormatText, report.Options{})
	assert.ErrorContains(t, err, "reading file")
}

func TestWritePaths(t *testing.T) {
	path := writeSource(t, t.TempDir(), "incr.c", incr)
	a := newTestAnalyzer(t, "")

	var buf bytes.Buffer
	require.NoError(t, a.writePaths(context.Background(), &buf, path, "a"))
	assert.Equal(t, "=== function f (line 1) ===\na:\t\t0|d -> 3|u\n", buf.String())
}

func TestWriteDOTFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "incr.c", incr)
	outDir := filepath.Join(dir, "graphs")
	a := newTestAnalyzer(t, "")

	out, err := a.writeDOT(context.Background(), path, outDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "incr.dot"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "digraph \"incr\" {\n"))
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"main.c", "main"},
		{"src/util/str.c", "str"},
		{"Makefile", "Makefile"},
		{"archive.tar.c", "archive.tar"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, baseName(tt.in))
		})
	}
}

func TestPositiveInt(t *testing.T) {
	assert.NoError(t, positiveInt("4"))
	assert.Error(t, positiveInt("0"))
	assert.Error(t, positiveInt("-2"))
	assert.Error(t, positiveInt("four"))
}

func TestFileOptions(t *testing.T) {
	options := fileOptions([]scanner.FileInfo{
		{Path: "main.c", FullPath: "/src/main.c", Size: 120},
		{Path: "util/str.c", FullPath: "/src/util/str.c", Size: 64},
	})
	require.Len(t, options, 2)
	assert.Equal(t, "main.c (120 bytes)", options[0].Key)
	assert.Equal(t, "/src/main.c", options[0].Value)
	assert.Equal(t, "util/str.c (64 bytes)", options[1].Key)
}
