// Package report exports bookings to Excel workbooks.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"bookflow/internal/models"
)

// BookingLister supplies the bookings of a time range.
type BookingLister interface {
	ListBookings(ctx context.Context, from, to time.Time) ([]models.Booking, error)
}

var columns = []string{
	"Reference", "Resource", "Customer", "Starts At", "Ends At",
	"Quantity", "Unit Price", "Total", "Status", "Service", "Notes",
}

// Exporter writes booking reports.
type Exporter struct {
	bookings BookingLister
}

func NewExporter(bookings BookingLister) *Exporter {
	return &Exporter{bookings: bookings}
}

// Export writes an .xlsx workbook with one row per booking in the range.
func (e *Exporter) Export(ctx context.Context, from, to time.Time, w io.Writer) error {
	bookings, err := e.bookings.ListBookings(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}
	return writeWorkbook(bookings, w)
}

func writeWorkbook(bookings []models.Booking, w io.Writer) error {
	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Bookings"
	file.SetSheetName("Sheet1", sheet)

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	if style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = file.SetCellStyle(sheet, startCell, endCell, style)
	}

	for r, b := range bookings {
		values := []any{
			b.Reference,
			b.Bookable().String(),
			b.Customer().String(),
			b.StartsAt.Format("2006-01-02 15:04"),
			b.EndsAt.Format("2006-01-02 15:04"),
			b.Quantity,
			b.Price,
			b.Total,
			string(b.Status),
			b.ServiceType,
			b.Notes,
		}
		for c, val := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
	}

	return file.Write(w)
}
