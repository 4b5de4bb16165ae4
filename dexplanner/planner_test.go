package dexplanner

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newFakeDexerScript writes a stand-in for the real external dexer: it
// copies a fixed jar holding one classes.dex entry to whatever --output
// path it's given, so tests can run without any Android toolchain on PATH
// and the jar post-processing steps have a real zip to read.
func newFakeDexerScript(t *testing.T, dir string) string {
	t.Helper()
	template := filepath.Join(dir, "fakedex.jar")
	f, err := os.Create(template)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	entry, err := w.Create("classes.dex")
	require.NoError(t, err)
	_, err = entry.Write([]byte("dexbytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	script := filepath.Join(dir, "fakedexer.sh")
	content := "#!/bin/sh\nset -e\nwhile [ \"$#\" -gt 0 ]; do\n  if [ \"$1\" = \"--output\" ]; then\n    shift\n    cp \"" + template + "\" \"$1\"\n  fi\n  shift\ndone\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0755))
	return script
}

func TestColdBuildOfOneDex(t *testing.T) {
	dir := t.TempDir()
	successDir := filepath.Join(dir, "success")
	inJar := filepath.Join(dir, "in", "a.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(inJar), 0755))
	require.NoError(t, os.WriteFile(inJar, []byte("jarbytes"), 0644))
	outDex := filepath.Join(dir, "out", "classes.dex")

	pl := NewPlanner(Options{SuccessDir: successDir, DexTool: newFakeDexerScript(t, dir)})
	hashes := InputHashes{inJar: "H1"}

	res, err := pl.Run(context.Background(), map[string][]string{outDex: {inJar}}, hashes)
	require.NoError(t, err)
	require.Equal(t, []string{outDex}, res.Produced)
	require.Empty(t, res.Cached)

	_, err = os.Stat(outDex)
	require.NoError(t, err)
	_, err = os.Stat(successDirPathFor(successDir, outDex))
	require.NoError(t, err)
}

func TestUpToDateRerunSkipsWork(t *testing.T) {
	dir := t.TempDir()
	successDir := filepath.Join(dir, "success")
	inJar := filepath.Join(dir, "in", "a.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(inJar), 0755))
	require.NoError(t, os.WriteFile(inJar, []byte("jarbytes"), 0644))
	outDex := filepath.Join(dir, "out", "classes.dex")

	pl := NewPlanner(Options{SuccessDir: successDir, DexTool: newFakeDexerScript(t, dir)})
	hashes := InputHashes{inJar: "H1"}
	multimap := map[string][]string{outDex: {inJar}}

	_, err := pl.Run(context.Background(), multimap, hashes)
	require.NoError(t, err)

	res2, err := pl.Run(context.Background(), multimap, hashes)
	require.NoError(t, err)
	require.Empty(t, res2.Produced)
	require.Equal(t, []string{outDex}, res2.Cached)
}

func TestInputChangeTriggersRebuild(t *testing.T) {
	dir := t.TempDir()
	successDir := filepath.Join(dir, "success")
	inJar := filepath.Join(dir, "in", "a.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(inJar), 0755))
	require.NoError(t, os.WriteFile(inJar, []byte("jarbytes"), 0644))
	outDex := filepath.Join(dir, "out", "classes.dex")

	pl := NewPlanner(Options{SuccessDir: successDir, DexTool: newFakeDexerScript(t, dir)})
	multimap := map[string][]string{outDex: {inJar}}

	_, err := pl.Run(context.Background(), multimap, InputHashes{inJar: "H1"})
	require.NoError(t, err)

	res, err := pl.Run(context.Background(), multimap, InputHashes{inJar: "H2"})
	require.NoError(t, err)
	require.Equal(t, []string{outDex}, res.Produced)
}

func TestStaleSiblingPruning(t *testing.T) {
	dir := t.TempDir()
	successDir := filepath.Join(dir, "success")
	secondaryDir := filepath.Join(dir, "secondary")
	require.NoError(t, os.MkdirAll(secondaryDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(secondaryDir, "stale.dex.jar"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(secondaryDir, "keep.meta"), []byte("x"), 0644))

	inJar := filepath.Join(dir, "in", "a.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(inJar), 0755))
	require.NoError(t, os.WriteFile(inJar, []byte("jarbytes"), 0644))
	newOut := filepath.Join(secondaryDir, "new.dex.jar")

	pl := NewPlanner(Options{SuccessDir: successDir, SecondaryOutputDir: secondaryDir, DexTool: newFakeDexerScript(t, dir)})
	res, err := pl.Run(context.Background(), map[string][]string{newOut: {inJar}}, InputHashes{inJar: "H1"})
	require.NoError(t, err)

	require.Contains(t, res.Pruned, filepath.Join(secondaryDir, "stale.dex.jar"))
	_, err = os.Stat(filepath.Join(secondaryDir, "keep.meta"))
	require.NoError(t, err, "keep.meta must survive pruning")
	_, err = os.Stat(newOut)
	require.NoError(t, err, "the newly produced output must survive pruning")
}

func TestUnknownSuffixIsConfigurationError(t *testing.T) {
	dir := t.TempDir()
	inJar := filepath.Join(dir, "in", "a.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(inJar), 0755))
	require.NoError(t, os.WriteFile(inJar, []byte("jarbytes"), 0644))
	badOut := filepath.Join(dir, "out", "classes.weird")

	pl := NewPlanner(Options{SuccessDir: filepath.Join(dir, "success"), DexTool: newFakeDexerScript(t, dir)})
	_, err := pl.Run(context.Background(), map[string][]string{badOut: {inJar}}, InputHashes{inJar: "H1"})
	require.Error(t, err)
}
