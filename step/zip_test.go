package step

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTestZip(t *testing.T, path string, modTime time.Time) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := zip.NewWriter(f)
	hdr := &zip.FileHeader{Name: "classes.dex", Method: zip.Deflate}
	hdr.Modified = modTime
	entry, err := w.CreateHeader(hdr)
	require.NoError(t, err)
	_, err = entry.Write([]byte("dex bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestRepackZipEntriesStoreForcesStore(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.jar")
	dst := filepath.Join(dir, "out.jar")
	writeTestZip(t, src, time.Now())

	_, err := RepackZipEntriesStore{SrcZip: src, DstZip: dst, StoreEntries: map[string]bool{"classes.dex": true}}.Execute(context.Background())
	require.NoError(t, err)

	r, err := zip.OpenReader(dst)
	require.NoError(t, err)
	defer r.Close()
	require.Len(t, r.File, 1)
	require.Equal(t, zip.Store, r.File[0].Method)

	entry, err := r.File[0].Open()
	require.NoError(t, err)
	data, err := io.ReadAll(entry)
	require.NoError(t, err)
	require.Equal(t, "dex bytes", string(data))
}

func TestZipScrubIsDeterministicAcrossTimestamps(t *testing.T) {
	dir := t.TempDir()
	srcA := filepath.Join(dir, "a.jar")
	srcB := filepath.Join(dir, "b.jar")
	writeTestZip(t, srcA, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	writeTestZip(t, srcB, time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC))

	dstA := filepath.Join(dir, "a.scrubbed.jar")
	dstB := filepath.Join(dir, "b.scrubbed.jar")
	_, err := ZipScrub{SrcZip: srcA, DstZip: dstA}.Execute(context.Background())
	require.NoError(t, err)
	_, err = ZipScrub{SrcZip: srcB, DstZip: dstB}.Execute(context.Background())
	require.NoError(t, err)

	bytesA, err := os.ReadFile(dstA)
	require.NoError(t, err)
	bytesB, err := os.ReadFile(dstB)
	require.NoError(t, err)
	require.Equal(t, bytesA, bytesB, "two archives differing only in entry timestamp must scrub to identical bytes")
}
