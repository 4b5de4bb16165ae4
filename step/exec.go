package step

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/forgebuild/forgecore/util/ioutil"
	"github.com/forgebuild/forgecore/util/shlex"
	"github.com/forgebuild/forgecore/util/status"
)

// stderrCaptureLimit bounds how much of an external tool's stderr this
// module will hold in memory. Past the limit the capture buffer returns a
// ResourceExhausted error, which fails the step, so a runaway dexer or xz
// invocation writing gigabytes of diagnostics cannot grow this process's
// memory without bound.
const stderrCaptureLimit = 4 << 20

// RunExternalProgram shells out to an opaque external tool -- a dexer, a
// desugar tool, anything this module has no reason to reimplement. Its
// stderr is captured and surfaced on failure; its stdout is discarded. A
// non-zero exit
// becomes an Aborted status, matching how the planner classifies any other
// execution-stage failure.
type RunExternalProgram struct {
	Name       string
	Args       []string
	Dir        string
	OutputPath string
}

func (s RunExternalProgram) ShortName() string { return s.Name }
func (s RunExternalProgram) Describe() string {
	return shlex.Quote(append([]string{s.Name}, s.Args...)...)
}

func (s RunExternalProgram) Execute(ctx context.Context) (Result, error) {
	cmd := exec.CommandContext(ctx, s.Name, s.Args...)
	cmd.Dir = s.Dir
	stderr := ioutil.NewLimitBuffer(stderrCaptureLimit, s.Name+" stderr")
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return Result{}, status.AbortedErrorf("%s %v: %s: %s", s.Name, s.Args, err, stderr.String())
	}
	var outs []string
	if s.OutputPath != "" {
		outs = []string{s.OutputPath}
	}
	return Result{Outputs: outs}, nil
}

// XZCompress runs an external `xz` binary over Src, producing Dst. Level is
// the -0..-9 compression level; 0 means "let xz pick its default". No pure
// Go xz implementation appears anywhere in this module's dependency
// surface, and the domain spec treats the compressor as an opaque external
// program, so this step is a thin os/exec wrapper rather than a vendored
// codec.
type XZCompress struct {
	Src, Dst string
	Level    int
	Extreme  bool
}

func (s XZCompress) ShortName() string { return "xz_compress" }
func (s XZCompress) Describe() string  { return fmt.Sprintf("xz -c %s > %s", s.Src, s.Dst) }

func (s XZCompress) Execute(ctx context.Context) (Result, error) {
	levelFlag := "-6"
	if s.Level > 0 {
		levelFlag = fmt.Sprintf("-%d", s.Level)
		if s.Extreme {
			levelFlag += "e"
		}
	}
	cmd := exec.CommandContext(ctx, "xz", "--keep", "--stdout", levelFlag, s.Src)
	stderr := ioutil.NewLimitBuffer(stderrCaptureLimit, "xz stderr")
	cmd.Stderr = stderr
	out, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, status.InternalErrorf("xz_compress pipe: %s", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, status.AbortedErrorf("xz_compress start: %s: %s", err, stderr.String())
	}
	if err := writeAllToFile(s.Dst, out); err != nil {
		return Result{}, status.InternalErrorf("xz_compress write %s: %s", s.Dst, err)
	}
	if err := cmd.Wait(); err != nil {
		return Result{}, status.AbortedErrorf("xz_compress %s: %s: %s", s.Src, err, stderr.String())
	}
	return Result{Outputs: []string{s.Dst}}, nil
}
