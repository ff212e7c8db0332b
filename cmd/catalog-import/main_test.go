package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeLines(t *testing.T, dir, name string, n int) string {
	t.Helper()
	var b strings.Builder
	for i := range n {
		b.WriteString(`{"name": "Item ` + name + `-` + string(rune('a'+i)) + `", "category": "OT", "price": "1.00", "stock": 1}` + "\n")
	}
	path := filepath.Join(dir, name+".jsonl")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestImporter_DryRun(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeLines(t, dir, "one", 5),
		writeLines(t, dir, "two", 3),
	}

	imp := &importer{lg: zap.NewNop(), batchSize: 2, workers: 2}
	require.NoError(t, imp.run(context.Background(), files))
	assert.Equal(t, int64(8), imp.total.Load())
}

func TestImporter_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.jsonl")
	require.NoError(t, os.WriteFile(bad, []byte(`{"name": "X", "category": "OT", "price": "5", "discount_price": "9"}`+"\n"), 0o600))

	imp := &importer{lg: zap.NewNop(), batchSize: 10, workers: 1}
	err := imp.run(context.Background(), []string{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")

	err = imp.run(context.Background(), []string{filepath.Join(dir, "missing.jsonl")})
	assert.Error(t, err)
}
