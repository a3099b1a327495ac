package fetch

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Dir serves corpus resources from a directory tree.
type Dir struct {
	root string
	log  *zap.Logger
}

func NewDir(root string, log *zap.Logger) *Dir {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dir{root: root, log: log.Named("dir")}
}

func (d *Dir) Fetch(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !isSafePath(p) {
		return nil, &Error{Path: p, Err: fmt.Errorf("unsafe resource path")}
	}
	data, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(path.Clean(p))))
	if err != nil {
		return nil, &Error{Path: p, Err: err}
	}
	d.log.Debug("Read resource", zap.String("path", p), zap.Int("bytes", len(data)))
	return data, nil
}

// isSafePath returns false for paths that could escape the corpus root:
// absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
