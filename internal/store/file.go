package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"roombook/internal/models"
)

// File is a booking store backed by a local CSV file with the Header columns.
// Every mutation rewrites the whole file.
type File struct {
	mu     sync.Mutex
	path   string
	loc    *time.Location
	logger *slog.Logger
}

// NewFile returns a File store at path. The file is created on the first write.
func NewFile(logger *slog.Logger, path string, loc *time.Location) *File {
	return &File{path: path, loc: loc, logger: logger}
}

func (f *File) List(ctx context.Context) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows, err := f.readRows()
	if err != nil {
		return nil, err
	}
	bookings := make([]models.Booking, 0, len(rows))
	for i, row := range rows {
		b, err := DecodeRow(row, f.loc)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", f.path, i+2, err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (f *File) Append(ctx context.Context, b models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows, err := f.readRows()
	if err != nil {
		return err
	}
	return f.writeRows(append(rows, EncodeRow(b)))
}

// Delete removes the first row for id. Unknown ids are ignored.
func (f *File) Delete(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows, err := f.readRows()
	if err != nil {
		return err
	}
	key := strconv.Itoa(id)
	i := slices.IndexFunc(rows, func(row []string) bool { return len(row) > colID && row[colID] == key })
	if i < 0 {
		f.logger.Warn("Booking not found in file store, nothing to delete.", "bookingID", id, "file", f.path)
		return nil
	}
	return f.writeRows(slices.Delete(rows, i, i+1))
}

// readRows returns the data rows, without the header.
func (f *File) readRows() ([][]string, error) {
	file, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open booking file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read booking file: %w", err)
	}
	if len(rows) > 0 && IsHeader(rows[0]) {
		rows = rows[1:]
	}
	return rows, nil
}

// writeRows replaces the file atomically through a temporary sibling.
func (f *File) writeRows(rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary booking file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(Header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write booking file: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write booking file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write booking file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace booking file: %w", err)
	}
	return nil
}
