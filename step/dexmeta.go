package step

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/forgebuild/forgecore/util/status"
)

// DexJarAnalysis writes a small ".meta" sidecar file next to a dex jar,
// recording the uncompressed size of its "classes.dex" entry. Downstream
// packaging steps read this instead of reopening the jar to decide how
// many dex files a secondary-dex APK split needs to stay under the
// platform's per-dex method/field limits.
type DexJarAnalysis struct {
	Jar      string
	MetaPath string
}

func (s DexJarAnalysis) ShortName() string { return "dex_jar_analysis" }
func (s DexJarAnalysis) Describe() string  { return fmt.Sprintf("dex_jar_analysis %s -> %s", s.Jar, s.MetaPath) }

func (s DexJarAnalysis) Execute(ctx context.Context) (Result, error) {
	r, err := zip.OpenReader(s.Jar)
	if err != nil {
		return Result{}, status.InternalErrorf("dex_jar_analysis open %s: %s", s.Jar, err)
	}
	defer r.Close()

	var classesSize uint64
	found := false
	for _, f := range r.File {
		if f.Name == "classes.dex" {
			classesSize = f.UncompressedSize64
			found = true
			break
		}
	}
	if !found {
		return Result{}, status.FailedPreconditionErrorf("dex_jar_analysis: %s has no classes.dex entry", s.Jar)
	}

	content := "jar:" + s.Jar + " classes.dex:" + strconv.FormatUint(classesSize, 10) + "\n"
	if err := os.WriteFile(s.MetaPath, []byte(content), 0644); err != nil {
		return Result{}, status.InternalErrorf("dex_jar_analysis write %s: %s", s.MetaPath, err)
	}
	return Result{Outputs: []string{s.MetaPath}}, nil
}
