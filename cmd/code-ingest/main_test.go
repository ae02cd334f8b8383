package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeList(t *testing.T, dir, name string, codes ...string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(codes, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{line: "grass2026", want: "GRASS2026", ok: true},
		{line: "  LAWN10 \r", want: "LAWN10", ok: true},
		{line: "ABC", ok: false},
		{line: "", ok: false},
		{line: "THISCODEISWAYTOOLONG", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := normalizeCode(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindSharedCodes(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeList(t, dir, "codes1.gz", "TURF2026", "LAWN10", "ONLYONE1"),
		writeList(t, dir, "codes2.gz", "turf2026", "PITCH15", "no"),
		writeList(t, dir, "codes3.gz", "LAWN10", "PITCH15", "TURF2026"),
	}
	ctx := context.Background()

	filters, err := buildBloomFilters(ctx, files, 1000)
	require.NoError(t, err)
	require.Len(t, filters, 3)

	tests := []struct {
		name     string
		minFiles int
		want     []string
	}{
		{name: "two lists", minFiles: 2, want: []string{"LAWN10", "PITCH15", "TURF2026"}},
		{name: "all lists", minFiles: 3, want: []string{"TURF2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := findSharedCodes(ctx, files, filters, tt.minFiles)
			require.NoError(t, err)
			sort.Strings(got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectCodes(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeList(t, dir, "a.gz", "LAWN10", "lawn10"),
		writeList(t, dir, "b.gz", "PITCH15"),
	}

	got, err := collectCodes(context.Background(), files)
	require.NoError(t, err)
	sort.Strings(got)
	assert.Equal(t, []string{"LAWN10", "PITCH15"}, got)
}

func TestStreamGzFile_Canceled(t *testing.T) {
	path := writeList(t, t.TempDir(), "codes.gz", "LAWN10")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := streamGzFile(ctx, path, func(string) {})
	require.ErrorIs(t, err, context.Canceled)
}
