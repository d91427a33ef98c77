package audit

import (
	"testing"
	"time"

	"github.com/foxseedlab/auditbot/internal/export"
	"github.com/foxseedlab/auditbot/internal/repository"
	"github.com/foxseedlab/auditbot/internal/webhook"
	"github.com/stretchr/testify/require"
)

func TestBuildExportWebhookPayload(t *testing.T) {
	closedAt := testNow.Add(3 * time.Hour)
	result := &CloseResult{
		Audit: repository.Audit{
			ID:        "audit-1",
			TableName: testTable,
			Prompt:    "Where are you?",
			CreatedAt: testNow,
			ClosedAt:  &closedAt,
		},
		Responses: []repository.AuditResponse{
			{UserID: "A", UserName: "alice", Answer: "Paris", RecordedAt: testNow.Add(time.Hour)},
		},
		Artifact: &export.Artifact{Filename: testTable + ".xlsx"},
	}
	jst := time.FixedZone("JST", 9*60*60)

	p := buildExportWebhookPayload(result, "Asia/Tokyo", jst)

	require.Equal(t, webhook.ExportWebhookSchemaVersion, p.SchemaVersion)
	require.Equal(t, "audit-1", p.AuditID)
	require.Equal(t, "2026-03-04T18:00:00+09:00", p.CreatedAt)
	require.Equal(t, "2026-03-04T21:00:00+09:00", p.ClosedAt)
	require.Equal(t, "Asia/Tokyo", p.Timezone)
	require.Equal(t, 1, p.ResponseCount)
	require.Equal(t, "2026-03-04T19:00:00+09:00", p.Responses[0].RecordedAt)
	require.Equal(t, testTable+".xlsx", p.ArtifactFilename)
}

func TestBuildExportWebhookPayload_OpenAuditWithoutArtifact(t *testing.T) {
	p := buildExportWebhookPayload(&CloseResult{Audit: repository.Audit{ID: "a", CreatedAt: testNow}}, "UTC", nil)

	require.Empty(t, p.ClosedAt)
	require.Empty(t, p.ArtifactFilename)
	require.NotNil(t, p.Responses)
	require.Zero(t, p.ResponseCount)
}
