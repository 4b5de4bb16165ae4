package step

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/forgebuild/forgecore/util/status"
)

// zipEpoch is the fixed timestamp ZipScrub assigns to every entry. DOS date
// fields (which zip.FileHeader.Modified round-trips through) can't express
// dates before 1980, so the MS-DOS epoch itself is the natural zero value.
func zipEpoch() time.Time {
	return time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// RepackZipEntriesStore rewrites SrcZip into DstZip, forcing every entry
// named in StoreEntries to the STORE (uncompressed) method while leaving
// the rest as they were. The dexer's per-class outputs are re-packed this
// way so the outer solid-compression pass (xz) does the only real
// compressing -- double-compressing with DEFLATE first wastes CPU and
// usually grows the xz output.
type RepackZipEntriesStore struct {
	SrcZip, DstZip string
	StoreEntries   map[string]bool
}

func (s RepackZipEntriesStore) ShortName() string { return "repack_zip_entries" }
func (s RepackZipEntriesStore) Describe() string {
	return fmt.Sprintf("repack_zip_entries %s -> %s (%d forced to store)", s.SrcZip, s.DstZip, len(s.StoreEntries))
}

func (s RepackZipEntriesStore) Execute(ctx context.Context) (Result, error) {
	r, err := zip.OpenReader(s.SrcZip)
	if err != nil {
		return Result{}, status.InternalErrorf("repack_zip_entries open %s: %s", s.SrcZip, err)
	}
	defer r.Close()

	out, err := os.Create(s.DstZip)
	if err != nil {
		return Result{}, status.InternalErrorf("repack_zip_entries create %s: %s", s.DstZip, err)
	}
	defer out.Close()
	w := zip.NewWriter(out)

	for _, f := range r.File {
		hdr := f.FileHeader
		if s.StoreEntries[f.Name] {
			hdr.Method = zip.Store
		}
		dst, err := w.CreateHeader(&hdr)
		if err != nil {
			return Result{}, status.InternalErrorf("repack_zip_entries write header %s: %s", f.Name, err)
		}
		src, err := f.Open()
		if err != nil {
			return Result{}, status.InternalErrorf("repack_zip_entries open entry %s: %s", f.Name, err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			src.Close()
			return Result{}, status.InternalErrorf("repack_zip_entries copy entry %s: %s", f.Name, err)
		}
		src.Close()
	}
	if err := w.Close(); err != nil {
		return Result{}, status.InternalErrorf("repack_zip_entries finalize %s: %s", s.DstZip, err)
	}
	return Result{Outputs: []string{s.DstZip}}, nil
}

// ZipScrub rewrites SrcZip into DstZip with every entry's modification
// time/date set to zipEpoch, its external file attributes zeroed and its
// extra fields dropped, so two zips holding
// byte-identical entries produce byte-identical archives regardless of
// when or on what platform they were built. The fields it clears are the
// same ones the local/central directory headers carry timestamps and
// attributes in -- see the directory header layout a raw zip parser walks
// field by field.
type ZipScrub struct {
	SrcZip, DstZip string
}

func (s ZipScrub) ShortName() string { return "zip_scrub" }
func (s ZipScrub) Describe() string  { return fmt.Sprintf("zip_scrub %s -> %s", s.SrcZip, s.DstZip) }

func (s ZipScrub) Execute(ctx context.Context) (Result, error) {
	r, err := zip.OpenReader(s.SrcZip)
	if err != nil {
		return Result{}, status.InternalErrorf("zip_scrub open %s: %s", s.SrcZip, err)
	}
	defer r.Close()

	out, err := os.Create(s.DstZip)
	if err != nil {
		return Result{}, status.InternalErrorf("zip_scrub create %s: %s", s.DstZip, err)
	}
	defer out.Close()
	w := zip.NewWriter(out)

	epoch := zipEpoch()
	for _, f := range r.File {
		hdr := f.FileHeader
		hdr.Modified = epoch
		hdr.ExternalAttrs = 0
		// Extra fields carry the source's extended timestamp; the writer
		// regenerates one from Modified.
		hdr.Extra = nil
		dst, err := w.CreateHeader(&hdr)
		if err != nil {
			return Result{}, status.InternalErrorf("zip_scrub write header %s: %s", f.Name, err)
		}
		src, err := f.Open()
		if err != nil {
			return Result{}, status.InternalErrorf("zip_scrub open entry %s: %s", f.Name, err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			src.Close()
			return Result{}, status.InternalErrorf("zip_scrub copy entry %s: %s", f.Name, err)
		}
		src.Close()
	}
	if err := w.Close(); err != nil {
		return Result{}, status.InternalErrorf("zip_scrub finalize %s: %s", s.DstZip, err)
	}
	return Result{Outputs: []string{s.DstZip}}, nil
}
