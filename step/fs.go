package step

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forgebuild/forgecore/util/status"
)

// Mkdir creates Path and any missing parents.
type Mkdir struct {
	Path string
}

func (s Mkdir) ShortName() string { return "mkdir" }
func (s Mkdir) Describe() string  { return fmt.Sprintf("mkdir -p %s", s.Path) }
func (s Mkdir) Execute(ctx context.Context) (Result, error) {
	if err := os.MkdirAll(s.Path, 0755); err != nil {
		return Result{}, status.InternalErrorf("mkdir %s: %s", s.Path, err)
	}
	return Result{}, nil
}

// WriteFile writes Content to Path, creating parent directories as needed.
type WriteFile struct {
	Path    string
	Content []byte
	Mode    os.FileMode
}

func (s WriteFile) ShortName() string { return "write_file" }
func (s WriteFile) Describe() string  { return fmt.Sprintf("write_file %s (%d bytes)", s.Path, len(s.Content)) }
func (s WriteFile) Execute(ctx context.Context) (Result, error) {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return Result{}, status.InternalErrorf("write_file %s: %s", s.Path, err)
	}
	mode := s.Mode
	if mode == 0 {
		mode = 0644
	}
	if err := os.WriteFile(s.Path, s.Content, mode); err != nil {
		return Result{}, status.InternalErrorf("write_file %s: %s", s.Path, err)
	}
	return Result{Outputs: []string{s.Path}}, nil
}

// Remove deletes Path if it exists. Missing paths are not an error, since
// steps commonly use it to clear a stale output before regenerating it.
type Remove struct {
	Path string
}

func (s Remove) ShortName() string { return "rm" }
func (s Remove) Describe() string  { return fmt.Sprintf("rm -f %s", s.Path) }
func (s Remove) Execute(ctx context.Context) (Result, error) {
	if err := os.RemoveAll(s.Path); err != nil {
		return Result{}, status.InternalErrorf("rm %s: %s", s.Path, err)
	}
	return Result{}, nil
}

// CopyFile copies From to To byte-for-byte.
type CopyFile struct {
	From, To string
}

func (s CopyFile) ShortName() string { return "copy_file" }
func (s CopyFile) Describe() string  { return fmt.Sprintf("cp %s %s", s.From, s.To) }
func (s CopyFile) Execute(ctx context.Context) (Result, error) {
	data, err := os.ReadFile(s.From)
	if err != nil {
		return Result{}, status.InternalErrorf("copy_file read %s: %s", s.From, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.To), 0755); err != nil {
		return Result{}, status.InternalErrorf("copy_file mkdir for %s: %s", s.To, err)
	}
	if err := os.WriteFile(s.To, data, 0644); err != nil {
		return Result{}, status.InternalErrorf("copy_file write %s: %s", s.To, err)
	}
	return Result{Outputs: []string{s.To}}, nil
}
