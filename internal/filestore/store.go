package filestore

import (
	"context"
	"errors"

	"uiforge/internal/merge"
)

// Store persists a job's generated files for the external storage
// collaborator. Keys are jobID/path.
type Store interface {
	Put(ctx context.Context, jobID, path string, content []byte) error
	Get(ctx context.Context, jobID, path string) ([]byte, error)
	List(ctx context.Context, jobID string) ([]string, error)
}

// ErrNotFound is returned for unknown files.
var ErrNotFound = errors.New("file not found")

// SaveResult writes every merged file of a finished job into dst.
func SaveResult(ctx context.Context, dst Store, jobID string, res *merge.Result) error {
	for _, f := range res.UIFiles {
		if err := dst.Put(ctx, jobID, "frontend/"+f.Path, []byte(f.Content)); err != nil {
			return err
		}
	}
	for _, f := range res.APIFiles {
		if err := dst.Put(ctx, jobID, "backend/"+f.Path, []byte(f.Content)); err != nil {
			return err
		}
	}
	return nil
}
