// Package stacktrace trims goroutine dumps down to frames from this module.
package stacktrace

import "strings"

// InternalPaths returns "internal/<pkg>/<file>.go:<line>" for every frame of
// stack that points into an internal package.
func InternalPaths(stack []byte) []string {
	var paths []string

	for line := range strings.SplitSeq(string(stack), "\n") {
		line = strings.TrimSpace(line)

		_, rel, ok := strings.Cut(line, "/internal/")
		if !ok {
			continue
		}

		file, rest, ok := strings.Cut(rel, ".go:")
		if !ok {
			continue
		}

		lineNo, _, _ := strings.Cut(rest, " ")
		paths = append(paths, "internal/"+file+".go:"+lineNo)
	}

	return paths
}
