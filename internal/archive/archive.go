// Package archive keeps an audit trail of generated documents. It records
// only the workflow kind, the produced file name, and the timestamp; user
// answers never reach storage.
package archive

import (
	"context"
	"time"
)

// DocumentRecord is one generated-document entry.
type DocumentRecord struct {
	ID        string
	Workflow  string
	FileName  string
	CreatedAt time.Time
}

// Stats summarizes the archive for the observability endpoints.
type Stats struct {
	Total      int            `json:"total"`
	ByWorkflow map[string]int `json:"by_workflow"`
}

type Store interface {
	Record(ctx context.Context, rec DocumentRecord) error
	Stats(ctx context.Context) (Stats, error)
	Close(ctx context.Context) error
}
