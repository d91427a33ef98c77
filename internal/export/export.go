package export

import (
	"context"

	"github.com/foxseedlab/auditbot/internal/repository"
)

type Artifact struct {
	Filename    string
	Path        string
	ContentType string
	Body        []byte
	RowCount    int
}

// Exporter serializes already-selected rows into a downloadable artifact.
type Exporter interface {
	Export(ctx context.Context, name string, rows []repository.AuditResponse) (*Artifact, error)
}
