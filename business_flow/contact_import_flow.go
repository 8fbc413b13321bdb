package businessflow

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Recognized import columns. Header matching is case-insensitive and extra
// columns are ignored.
const (
	importColEmail     = "email"
	importColPhone     = "phone"
	importColName      = "name"
	importColSourceID  = "source_id"
	importColFirstSeen = "first_seen"
)

// ContactImportSummary combines file parsing stats with the resolution
// outcome of the parsed records.
type ContactImportSummary struct {
	RowsRead    int                `json:"rows_read"`
	RowsSkipped int                `json:"rows_skipped"`
	Resolution  *ResolutionSummary `json:"resolution"`
}

// ContactImportFlow ingests contact list exports (CSV or XLSX) from an
// upstream system and feeds them through identity resolution.
type ContactImportFlow interface {
	ImportContactsCSV(ctx context.Context, file io.Reader, source string) (*ContactImportSummary, error)
	ImportContactsXLSX(ctx context.Context, file io.Reader, source string) (*ContactImportSummary, error)
	// ImportContactsFile dispatches on the filename extension.
	ImportContactsFile(ctx context.Context, file io.Reader, filename, source string) (*ContactImportSummary, error)
}

// ContactImportFlowImpl implements the contact import business flow
type ContactImportFlowImpl struct {
	resolution IdentityResolutionFlow
}

// NewContactImportFlow creates a new contact import flow instance
func NewContactImportFlow(resolution IdentityResolutionFlow) ContactImportFlow {
	return &ContactImportFlowImpl{resolution: resolution}
}

func (f *ContactImportFlowImpl) ImportContactsFile(ctx context.Context, file io.Reader, filename, source string) (*ContactImportSummary, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return f.ImportContactsCSV(ctx, file, source)
	case ".xlsx":
		return f.ImportContactsXLSX(ctx, file, source)
	default:
		return nil, NewBusinessError("UNSUPPORTED_FILE_TYPE", "Only .csv and .xlsx imports are supported", ErrUnsupportedFileType)
	}
}

func (f *ContactImportFlowImpl) ImportContactsCSV(ctx context.Context, file io.Reader, source string) (*ContactImportSummary, error) {
	if file == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Import file is required", ErrImportFileUnreadable)
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "source is required", ErrImportSourceRequired)
	}

	reader := csv.NewReader(bufio.NewReader(file))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, NewBusinessError("CSV_READ_ERROR", "Failed to read CSV header", err)
	}
	cols := importColumnIndex(header)

	var rows [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, NewBusinessError("CSV_READ_ERROR", "Failed to read CSV row", err)
		}
		rows = append(rows, rec)
	}
	return f.ingest(ctx, cols, rows, source)
}

func (f *ContactImportFlowImpl) ImportContactsXLSX(ctx context.Context, file io.Reader, source string) (*ContactImportSummary, error) {
	if file == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Import file is required", ErrImportFileUnreadable)
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "source is required", ErrImportSourceRequired)
	}

	xl, err := excelize.OpenReader(file)
	if err != nil {
		return nil, NewBusinessError("EXCEL_READ_ERROR", "Failed to open Excel file", err)
	}
	defer func() { _ = xl.Close() }()

	// First sheet only; exports from the upstream systems are single-sheet.
	sheet := xl.GetSheetName(0)
	allRows, err := xl.GetRows(sheet)
	if err != nil {
		return nil, NewBusinessError("EXCEL_READ_ERROR", "Failed to read Excel rows", err)
	}
	if len(allRows) == 0 {
		return nil, NewBusinessError("EXCEL_READ_ERROR", "Excel file has no header row", nil)
	}
	cols := importColumnIndex(allRows[0])
	return f.ingest(ctx, cols, allRows[1:], source)
}

// ingest converts parsed rows into contact records and resolves them. Rows
// with no usable cell at all are counted as skipped here; rows whose
// identifiers fail normalization are counted by the resolution summary.
func (f *ContactImportFlowImpl) ingest(ctx context.Context, cols map[string]int, rows [][]string, source string) (*ContactImportSummary, error) {
	summary := &ContactImportSummary{RowsRead: len(rows)}
	records := make([]ContactRecord, 0, len(rows))
	for _, row := range rows {
		rec := ContactRecord{
			Email:    cellAt(row, cols, importColEmail),
			Phone:    cellAt(row, cols, importColPhone),
			Name:     cellAt(row, cols, importColName),
			Source:   source,
			SourceID: cellAt(row, cols, importColSourceID),
		}
		if rec.Email == "" && rec.Phone == "" {
			summary.RowsSkipped++
			continue
		}
		rec.FirstSeen = parseImportTime(cellAt(row, cols, importColFirstSeen))
		records = append(records, rec)
	}

	resolution, err := f.resolution.ResolveContacts(ctx, records)
	if err != nil {
		return nil, err
	}
	summary.Resolution = resolution
	return summary, nil
}

func importColumnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func cellAt(row []string, cols map[string]int, col string) string {
	idx, ok := cols[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseImportTime accepts the timestamp formats seen in upstream exports. An
// unparseable or empty value yields the zero time and the resolver stamps the
// record with the current time instead.
func parseImportTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "01/02/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
