package provenance

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"satwatch/internal/saturation"
)

// WriteFacts writes the run as Mangle source, one fact per line, so it can be
// loaded next to provenance.mg or any other program.
func WriteFacts(w io.Writer, iterations []saturation.Iteration) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "# satwatch facts: %d iterations\n", len(iterations)); err != nil {
		return err
	}
	for _, atom := range Facts(iterations) {
		if _, err := fmt.Fprintf(bw, "%s.\n", atom.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ExportFacts writes the run's facts to path, creating parent directories.
func ExportFacts(path string, iterations []saturation.Iteration) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create fact file: %w", err)
	}
	if err := WriteFacts(f, iterations); err != nil {
		f.Close()
		return fmt.Errorf("failed to write facts: %w", err)
	}
	return f.Close()
}
