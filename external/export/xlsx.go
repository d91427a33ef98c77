package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/foxseedlab/auditbot/internal/export"
	"github.com/foxseedlab/auditbot/internal/repository"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sheetName       = "Responses"
	recordedAtTitle = "Recorded At"
	nameTitle       = "Name"
)

// XLSXExporter writes one workbook per audit into dir.
type XLSXExporter struct {
	dir          string
	answerHeader string
	loc          *time.Location
}

func NewXLSXExporter(dir, answerHeader string, loc *time.Location) *XLSXExporter {
	if answerHeader == "" {
		answerHeader = "Answer"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &XLSXExporter{dir: dir, answerHeader: answerHeader, loc: loc}
}

func (e *XLSXExporter) Export(ctx context.Context, name string, rows []repository.AuditResponse) (*export.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := e.render(rows)
	if err != nil {
		return nil, fmt.Errorf("render workbook %s: %w", name, err)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir %s: %w", e.dir, err)
	}
	filename := name + ".xlsx"
	path := filepath.Join(e.dir, filename)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	slog.Debug("workbook written", "path", path, "rows", len(rows), "bytes", len(body))

	return &export.Artifact{
		Filename:    filename,
		Path:        path,
		ContentType: xlsxContentType,
		Body:        body,
		RowCount:    len(rows),
	}, nil
}

func (e *XLSXExporter) render(rows []repository.AuditResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, err
	}
	header := []any{nameTitle, e.answerHeader, recordedAtTitle}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{r.UserName, r.Answer, r.RecordedAt.In(e.loc).Format(time.DateTime)}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ export.Exporter = (*XLSXExporter)(nil)
