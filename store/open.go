package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/phanxgames/badgekit"
)

// Open returns the store described by spec: "mem:", "file:<dir>" or
// "sqlite:<path>". A bare path is treated as a file store directory. The
// returned closer releases the store's resources.
func Open(ctx context.Context, spec string) (badgekit.LayoutStore, io.Closer, error) {
	kind, arg, found := strings.Cut(spec, ":")
	if !found {
		kind, arg = "file", spec
	}
	switch kind {
	case "mem", "memory":
		return NewMemoryStore(), io.NopCloser(nil), nil
	case "file":
		fs, err := NewFileStore(arg)
		if err != nil {
			return nil, nil, err
		}
		return fs, io.NopCloser(nil), nil
	case "sqlite":
		s, err := OpenSQLite(ctx, arg)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("store: unknown kind %q in %q", kind, spec)
	}
}
