package main

import "io"

// teeWriter fans log output out to both sinks; a failed sink never blocks
// the other.
type teeWriter struct {
	sinks []io.Writer
}

func newTeeWriter(sinks ...io.Writer) *teeWriter {
	return &teeWriter{sinks: sinks}
}

func (t *teeWriter) Write(p []byte) (int, error) {
	for _, s := range t.sinks {
		s.Write(p)
	}
	return len(p), nil
}
