package audit

import (
	"time"

	"github.com/foxseedlab/auditbot/internal/webhook"
)

func buildExportWebhookPayload(result *CloseResult, timezone string, loc *time.Location) webhook.ExportWebhookPayload {
	loc = safeLocation(loc)
	a := result.Audit
	responses := make([]webhook.ExportWebhookResponse, 0, len(result.Responses))
	for _, r := range result.Responses {
		responses = append(responses, webhook.ExportWebhookResponse{
			UserID:     r.UserID,
			UserName:   r.UserName,
			Answer:     r.Answer,
			RecordedAt: r.RecordedAt.In(loc).Format(time.RFC3339),
		})
	}
	closedAt := ""
	if a.ClosedAt != nil {
		closedAt = a.ClosedAt.In(loc).Format(time.RFC3339)
	}
	filename := ""
	if result.Artifact != nil {
		filename = result.Artifact.Filename
	}
	return webhook.ExportWebhookPayload{
		SchemaVersion:    webhook.ExportWebhookSchemaVersion,
		AuditID:          a.ID,
		TableName:        a.TableName,
		Prompt:           a.Prompt,
		CreatedAt:        a.CreatedAt.In(loc).Format(time.RFC3339),
		ClosedAt:         closedAt,
		Timezone:         timezone,
		ResponseCount:    len(result.Responses),
		Responses:        responses,
		ArtifactFilename: filename,
	}
}

func safeLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
