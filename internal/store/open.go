package store

import (
	"fmt"
	"io"

	"github.com/amishk599/jobwatch/internal/model"
)

// Open returns the result store for backend ("json" or "sqlite") at path,
// plus a closer the caller must run on shutdown.
func Open(backend, path string) (model.ResultStore, io.Closer, error) {
	switch backend {
	case "", "json":
		return NewJSONStore(path), nopCloser{}, nil
	case "sqlite":
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
