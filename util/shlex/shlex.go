// Package shlex contains facilities for shell command-line parsing and
// generation.
package shlex

import (
	"regexp"
	"strings"

	gshlex "github.com/google/shlex"
)

var (
	allSafeCharsRegexp   = regexp.MustCompile(`^[A-Za-z0-9/_\-]+$`)
	flagAssignmentRegexp = regexp.MustCompile(`^--[A-Za-z_-]+=`)
)

// Split parses a shell command string into its tokenized arguments. Used
// wherever a config value is more convenient to author as a single string
// ("-Xlint:all --verbose") than as a YAML list.
func Split(command string) ([]string, error) {
	return gshlex.Split(command)
}

// Quote renders tokens as a shell command line that Split can parse back
// into the same tokens. Used when logging or describing a step that shells
// out, so the printed command can be copy-pasted and re-run.
func Quote(tokens ...string) string {
	out := ""
	for i, arg := range tokens {
		out += quoteSingle(arg)
		if i < len(tokens)-1 {
			out += " "
		}
	}
	return out
}

func quoteSingle(arg string) string {
	if allSafeCharsRegexp.MatchString(arg) {
		return arg
	}
	prefix := flagAssignmentRegexp.FindString(arg)
	suffix := strings.TrimPrefix(arg, prefix)
	return prefix + `'` + strings.ReplaceAll(suffix, `'`, `'\''`) + `'`
}
