package logging

import "time"

// Field constructors for the values this tool logs most.

// Source tags a log entry with the input file or URL being resolved.
func Source(path string) Field {
	return Field{Key: "source", Value: path}
}

// Kind tags a log entry with the structured-file kind (ifgramStack, timeseries, ...)
func Kind(kind string) Field {
	return Field{Key: "kind", Value: kind}
}

// Count is a generic named count (acquisitions, pairs, dropped, ...)
func Count(name string, n int) Field {
	return Field{Key: name, Value: n}
}

// Figure tags a log entry with a figure name (BperpHistory, Network, ...)
func Figure(name string) Field {
	return Field{Key: "figure", Value: name}
}

// Path tags a log entry with an output path
func Path(p string) Field {
	return Field{Key: "path", Value: p}
}

// RunID tags a log entry with the archive run identifier
func RunID(id string) Field {
	return Field{Key: "run_id", Value: id}
}

// Latency records an operation duration
func Latency(d time.Duration) Field {
	return Field{Key: "latency_ms", Value: d.Milliseconds()}
}

// Error attaches an error to a log entry
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}
