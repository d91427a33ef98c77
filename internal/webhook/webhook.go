package webhook

import "context"

const ExportWebhookSchemaVersion = "2026-10-01"

type ExportWebhookResponse struct {
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
	Answer     string `json:"answer"`
	RecordedAt string `json:"recorded_at"`
}

type ExportWebhookPayload struct {
	SchemaVersion    string                  `json:"schema_version"`
	AuditID          string                  `json:"audit_id"`
	TableName        string                  `json:"table_name"`
	Prompt           string                  `json:"prompt"`
	CreatedAt        string                  `json:"created_at"`
	ClosedAt         string                  `json:"closed_at"`
	Timezone         string                  `json:"timezone"`
	ResponseCount    int                     `json:"response_count"`
	Responses        []ExportWebhookResponse `json:"responses"`
	ArtifactFilename string                  `json:"artifact_filename,omitempty"`
}

type Sender interface {
	SendExport(ctx context.Context, payload ExportWebhookPayload) error
}
