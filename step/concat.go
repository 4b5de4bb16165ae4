package step

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/forgebuild/forgecore/util/status"
)

// ConcatFiles concatenates Srcs into Dst, in the given order, byte for
// byte. Used to build the combined "solid" input that a subsequent
// XZCompress step compresses as a single xzs archive.
type ConcatFiles struct {
	Srcs []string
	Dst  string
}

func (s ConcatFiles) ShortName() string { return "concat_files" }
func (s ConcatFiles) Describe() string  { return fmt.Sprintf("cat %v > %s", s.Srcs, s.Dst) }

func (s ConcatFiles) Execute(ctx context.Context) (Result, error) {
	out, err := os.Create(s.Dst)
	if err != nil {
		return Result{}, status.InternalErrorf("concat_files create %s: %s", s.Dst, err)
	}
	defer out.Close()
	for _, src := range s.Srcs {
		if err := appendFile(out, src); err != nil {
			return Result{}, status.InternalErrorf("concat_files append %s: %s", src, err)
		}
	}
	return Result{Outputs: []string{s.Dst}}, nil
}

func appendFile(dst *os.File, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(dst, f)
	return err
}

func writeAllToFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}
