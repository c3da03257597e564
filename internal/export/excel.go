package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"shareit/internal/database"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	statusApprovedIcon = "✅"
	statusWaitingIcon  = "⏳"
	statusRejectedIcon = "❌"
)

// ExcelExporter renders an occupancy grid for all items over a date range:
// one row per item, one column per day, cell text listing the bookings that
// touch that day.
type ExcelExporter struct {
	db     *database.DB
	logger *zerolog.Logger
}

func NewExcelExporter(db *database.DB, logger *zerolog.Logger) *ExcelExporter {
	return &ExcelExporter{db: db, logger: logger}
}

// WriteReport streams the workbook to w. The range is inclusive of both dates.
func (e *ExcelExporter) WriteReport(ctx context.Context, w io.Writer, startDate, endDate time.Time) error {
	items, err := e.db.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("error getting items: %w", err)
	}

	// End of the last requested day, exclusive.
	rangeEnd := endDate.AddDate(0, 0, 1)
	bookings, err := e.db.BookingsInRange(ctx, startDate, rangeEnd)
	if err != nil {
		return fmt.Errorf("error getting bookings: %w", err)
	}

	bookingsByItem := make(map[int64][]models.Booking)
	for _, b := range bookings {
		bookingsByItem[b.ItemID] = append(bookingsByItem[b.ItemID], b)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Бронирования"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	// Заголовок периода
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Период: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	dateCols := e.writeDateHeaders(f, sheetName, startDate, endDate)
	e.writeItemHeaders(f, sheetName, items)
	e.writeBookingData(f, sheetName, items, bookingsByItem, startDate, dateCols)

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 20)
	}

	lastCol, _ := excelize.ColumnNumberToName(dateCols + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}

	e.logger.Info().
		Time("start", startDate).
		Time("end", endDate).
		Int("items", len(items)).
		Int("bookings", len(bookings)).
		Msg("occupancy report written")
	return nil
}

func (e *ExcelExporter) writeDateHeaders(f *excelize.File, sheetName string, startDate, endDate time.Time) int {
	col := 2
	currentDate := startDate

	style, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for !currentDate.After(endDate) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, currentDate.Format("02.01"))
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		col++
		currentDate = currentDate.AddDate(0, 0, 1)
	}
	return col - 2
}

func (e *ExcelExporter) writeItemHeaders(f *excelize.File, sheetName string, items []models.Item) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	row := 3
	for _, item := range items {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, item.Name)
		_ = f.SetCellStyle(sheetName, cell, cell, style)
		row++
	}
}

func (e *ExcelExporter) writeBookingData(
	f *excelize.File, sheetName string,
	items []models.Item,
	bookingsByItem map[int64][]models.Booking,
	startDate time.Time,
	dateCols int,
) {
	for rowIdx, item := range items {
		row := rowIdx + 3
		for colIdx := 0; colIdx < dateCols; colIdx++ {
			dayStart := startDate.AddDate(0, 0, colIdx)
			dayEnd := dayStart.AddDate(0, 0, 1)

			var dayBookings []models.Booking
			for _, b := range bookingsByItem[item.ID] {
				if b.OverlapsRange(dayStart, dayEnd) {
					dayBookings = append(dayBookings, b)
				}
			}

			cell, _ := excelize.CoordinatesToCellName(colIdx+2, row)
			var cellValue string
			if len(dayBookings) > 0 {
				for _, b := range dayBookings {
					cellValue += fmt.Sprintf("[№%d] %s бронь #%d\n", b.ID, statusIcon(b.Status), b.BookerID)
				}
			} else {
				cellValue = "Свободно"
			}
			_ = f.SetCellValue(sheetName, cell, cellValue)

			styleID, err := e.dayStyle(f, dayBookings)
			if err == nil {
				_ = f.SetCellStyle(sheetName, cell, cell, styleID)
			}
		}
	}
}

func statusIcon(status string) string {
	switch status {
	case models.StatusApproved:
		return statusApprovedIcon
	case models.StatusWaiting:
		return statusWaitingIcon
	case models.StatusRejected, models.StatusCanceled:
		return statusRejectedIcon
	default:
		return "❓"
	}
}

// dayStyle picks the cell fill: red when the day is held by an approved
// booking, yellow when only waiting requests touch it, white otherwise.
func (e *ExcelExporter) dayStyle(f *excelize.File, dayBookings []models.Booking) (int, error) {
	color := "#FFFFFF"
	hasWaiting := false
	for _, b := range dayBookings {
		switch b.Status {
		case models.StatusApproved:
			color = "#FFC7CE"
		case models.StatusWaiting:
			hasWaiting = true
		}
	}
	if color == "#FFFFFF" && hasWaiting {
		color = "#FFEB9C"
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}
