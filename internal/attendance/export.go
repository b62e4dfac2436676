package attendance

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"classattend/internal/metrics"
)

// exportColumns are the spreadsheet columns, in order.
var exportColumns = []string{
	"Registration Number", "Name", "Branch", "Section", "Status",
	"Latitude", "Longitude", "Timestamp", "Photo Path",
}

const exportSheet = "Attendance"

// Export materializes a session's records into an .xlsx workbook, one row
// per record. Returns ErrNoData when the session has no records.
func (s *Service) Export(ctx context.Context, sessionID string) (*bytes.Buffer, string, error) {
	records, err := s.repo.BySession(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), exportSheet)

	header := make([]interface{}, len(exportColumns))
	for i, col := range exportColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, "", fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		row := []interface{}{
			rec.RegNo, rec.Name, rec.Branch, rec.Section, rec.Status,
			rec.Latitude, rec.Longitude,
			rec.SubmittedAt.Format("2006-01-02 15:04:05"),
			rec.PhotoPath,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, "", fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}

	metrics.Exports.Inc()
	filename := fmt.Sprintf("attendance_session_%s.xlsx", sessionID)
	return buf, filename, nil
}
