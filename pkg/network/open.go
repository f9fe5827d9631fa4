package network

import (
	"path/filepath"

	"github.com/dd0wney/cluso-sarnet/pkg/stack"
)

// OpenSource builds a Source for path. A file with the stack container
// extension is opened as a structured source; anything else is treated as a
// flat pair list backed by baselineList. The returned *stack.Stack is nil
// for flat sources; the caller owns its Close.
func OpenSource(path, baselineList string) (Source, *stack.Stack, error) {
	if filepath.Ext(path) != stack.FileExt {
		return Source{PairListPath: path, BaselineListPath: baselineList}, nil, nil
	}
	s, err := stack.Open(path)
	if err != nil {
		return Source{}, nil, err
	}
	// Timeseries containers carry no pair list of their own; callers that
	// have one set PairListPath on the returned Source.
	return Source{Stack: s}, s, nil
}
