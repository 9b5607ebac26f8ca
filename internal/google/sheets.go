package google

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"roombook/internal/models"
	"roombook/internal/store"
)

const (
	DefaultSpreadsheetTitle = "Meeting_Room_Bookings"
	DefaultSheetName        = "Bookings"

	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
)

// SheetsConfig locates the booking worksheet.
// Without a SpreadsheetID the spreadsheet is looked up by Title through Drive, and created if missing.
type SheetsConfig struct {
	SpreadsheetID string
	Title         string
	SheetName     string
	SkipMalformed bool
}

// SheetsStore keeps one booking per row of a Google Sheets worksheet.
type SheetsStore struct {
	service       *sheets.Service
	logger        *slog.Logger
	loc           *time.Location
	spreadsheetID string
	sheetName     string
	sheetID       int64
	skipMalformed bool
}

// NewSheetsStore connects to the spreadsheet and makes sure the booking worksheet and its header exist.
func NewSheetsStore(ctx context.Context, logger *slog.Logger, cfg SheetsConfig, loc *time.Location, opts ...option.ClientOption) (*SheetsStore, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	if cfg.SheetName == "" {
		cfg.SheetName = DefaultSheetName
	}
	if cfg.Title == "" {
		cfg.Title = DefaultSpreadsheetTitle
	}

	s := &SheetsStore{
		service:       service,
		logger:        logger,
		loc:           loc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		skipMalformed: cfg.SkipMalformed,
	}

	if s.spreadsheetID == "" {
		if s.spreadsheetID, err = s.findOrCreateSpreadsheet(ctx, cfg.Title, opts); err != nil {
			return nil, err
		}
	}
	if err := s.ensureSheet(ctx); err != nil {
		return nil, err
	}
	logger.Info("Connected to booking spreadsheet.", "spreadsheetID", s.spreadsheetID, "sheet", s.sheetName)
	return s, nil
}

// List reads every data row below the header.
func (s *SheetsStore) List(ctx context.Context) ([]models.Booking, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A2:J")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read bookings sheet: %w", err)
	}

	bookings := make([]models.Booking, 0, len(resp.Values))
	for i, row := range resp.Values {
		cells := toStrings(row)
		if isBlank(cells) {
			continue
		}
		b, err := store.DecodeRow(cells, s.loc)
		if err != nil {
			rowNum := i + 2
			if s.skipMalformed {
				s.logger.Warn("Skipping malformed booking row.", "row", rowNum, "error", err)
				continue
			}
			return nil, fmt.Errorf("%s row %d: %w", s.sheetName, rowNum, err)
		}
		bookings = append(bookings, b)
	}
	s.logger.Debug("Read bookings from sheet.", "count", len(bookings))
	return bookings, nil
}

// Append adds the booking as a new last row.
func (s *SheetsStore) Append(ctx context.Context, b models.Booking) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{toCells(store.EncodeRow(b))}}
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeOf("A:J"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append booking row: %w", err)
	}
	return nil
}

// Delete removes the first row whose booking_id cell equals id. Unknown ids are ignored.
func (s *SheetsStore) Delete(ctx context.Context, id int) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read booking ids: %w", err)
	}

	key := strconv.Itoa(id)
	row := -1
	for i, cells := range resp.Values {
		if i > 0 && len(cells) > 0 && strings.TrimSpace(fmt.Sprint(cells[0])) == key {
			row = i
			break
		}
	}
	if row < 0 {
		s.logger.Warn("Booking not found in sheet, nothing to delete.", "bookingID", id)
		return nil
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: []*sheets.Request{{
		DeleteDimension: &sheets.DeleteDimensionRequest{
			Range: &sheets.DimensionRange{
				SheetId:         s.sheetID,
				Dimension:       "ROWS",
				StartIndex:      int64(row),
				EndIndex:        int64(row + 1),
				ForceSendFields: []string{"SheetId", "StartIndex"},
			},
		},
	}}}
	if _, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete booking row: %w", err)
	}
	return nil
}

// ensureSheet finds the booking worksheet, adding it with a header row when missing.
func (s *SheetsStore) ensureSheet(ctx context.Context) error {
	spreadsheet, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to open spreadsheet %s: %w", s.spreadsheetID, err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == s.sheetName {
			s.sheetID = sheet.Properties.SheetId
			return nil
		}
	}

	s.logger.Info("Booking sheet not found, creating it.", "sheet", s.sheetName)
	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: []*sheets.Request{{
		AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{
			Title: s.sheetName,
			GridProperties: &sheets.GridProperties{
				RowCount:    1000,
				ColumnCount: 20,
			},
		}},
	}}}
	resp, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", s.sheetName, err)
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		s.sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	header := &sheets.ValueRange{Values: [][]interface{}{toCells(store.Header)}}
	if _, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf("A1:J1"), header).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}
	return nil
}

func (s *SheetsStore) findOrCreateSpreadsheet(ctx context.Context, title string, opts []option.ClientOption) (string, error) {
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create drive service: %w", err)
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", strings.ReplaceAll(title, "'", `\'`), spreadsheetMimeType)
	files, err := driveService.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to search for spreadsheet %q: %w", title, err)
	}
	if len(files.Files) > 0 {
		return files.Files[0].Id, nil
	}

	s.logger.Info("Spreadsheet not found, creating it.", "title", title)
	created, err := s.service.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create spreadsheet %q: %w", title, err)
	}
	return created.SpreadsheetId, nil
}

func (s *SheetsStore) rangeOf(cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(s.sheetName, "'", "''"), cells)
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
