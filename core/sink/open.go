package sink

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// Open builds a Writer from configuration. Stdout is never closed by the
// returned writer.
func Open(cfg Config, fs afero.Fs) (*Writer, error) {
	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = stdoutWriter{os.Stdout}
	default:
		f, err := fs.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open sink output %s: %w", cfg.Output, err)
		}
		out = f
	}
	return NewWriter(out, cfg.Format, cfg.SourceType)
}

type stdoutWriter struct {
	io.Writer
}
