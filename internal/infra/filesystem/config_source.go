package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
)

// StdinPath selects standard input as the configuration source.
const StdinPath = "-"

type ConfigSource struct {
	Stdin io.Reader
}

func (s ConfigSource) ReadConfig(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if path == StdinPath {
		in := s.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read config from stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return data, nil
}
