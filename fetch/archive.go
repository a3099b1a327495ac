package fetch

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"go.uber.org/zap"
)

// Archive serves corpus resources from a zip archive - deck exports commonly
// travel as one. The archive is indexed once on open; entries with path
// traversal components ("..") or absolute paths are rejected to prevent Zip
// Slip style lookups.
type Archive struct {
	name    string
	rc      *zip.ReadCloser
	entries map[string]*zip.File
	log     *zap.Logger
}

func NewArchive(name string, log *zap.Logger) (*Archive, error) {
	if log == nil {
		log = zap.NewNop()
	}

	rc, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("unable to open corpus archive: %w", err)
	}

	a := &Archive{
		name:    name,
		rc:      rc,
		entries: make(map[string]*zip.File, len(rc.File)),
		log:     log.Named("archive"),
	}
	for _, f := range rc.File {
		entry := f.FileHeader.Name
		if !isSafePath(entry) {
			rc.Close()
			return nil, fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", entry)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		a.entries[path.Clean(entry)] = f
	}
	a.log.Debug("Indexed corpus archive", zap.String("archive", name), zap.Int("entries", len(a.entries)))
	return a, nil
}

func (a *Archive) Fetch(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !isSafePath(p) {
		return nil, &Error{Path: p, Err: fmt.Errorf("unsafe resource path")}
	}
	f, ok := a.entries[path.Clean(p)]
	if !ok {
		return nil, &Error{Path: p, Err: os.ErrNotExist}
	}
	r, err := f.Open()
	if err != nil {
		return nil, &Error{Path: p, Err: err}
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{Path: p, Err: err}
	}
	return data, nil
}

func (a *Archive) Close() error {
	return a.rc.Close()
}
