package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"shareit/internal/database"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupExportDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestWriteReport(t *testing.T) {
	db := setupExportDB(t)
	logger := zerolog.Nop()
	exporter := NewExcelExporter(db, &logger)
	ctx := context.Background()

	owner := &models.User{Name: "owner", Email: "owner@example.com"}
	require.NoError(t, db.CreateUser(ctx, owner))
	booker := &models.User{Name: "booker", Email: "booker@example.com"}
	require.NoError(t, db.CreateUser(ctx, booker))

	item := &models.Item{OwnerID: owner.ID, Name: "Дрель", Available: true}
	require.NoError(t, db.CreateItem(ctx, item))

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	booking := &models.Booking{
		ItemID:   item.ID,
		BookerID: booker.ID,
		Start:    start.Add(10 * time.Hour),
		End:      start.Add(34 * time.Hour),
		Status:   models.StatusApproved,
	}
	require.NoError(t, db.CreateBooking(ctx, booking))

	var buf bytes.Buffer
	err := exporter.WriteReport(ctx, &buf, start, start.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.NotZero(t, buf.Len())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	const sheet = "Бронирования"
	assert.Contains(t, f.GetSheetList(), sheet)

	header, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Contains(t, header, "01.09.2026")
	assert.Contains(t, header, "07.09.2026")

	firstDay, err := f.GetCellValue(sheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "01.09", firstDay)

	itemName, err := f.GetCellValue(sheet, "A3")
	require.NoError(t, err)
	assert.Equal(t, "Дрель", itemName)

	// Booking spans Sep 1-2, so both day cells mention it.
	for _, cell := range []string{"B3", "C3"} {
		val, err := f.GetCellValue(sheet, cell)
		require.NoError(t, err)
		assert.Contains(t, val, "бронь", "cell %s", cell)
	}

	free, err := f.GetCellValue(sheet, "D3")
	require.NoError(t, err)
	assert.Equal(t, "Свободно", strings.TrimSpace(free))
}

func TestWriteReport_EmptyDatabase(t *testing.T) {
	db := setupExportDB(t)
	logger := zerolog.Nop()
	exporter := NewExcelExporter(db, &logger)

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := exporter.WriteReport(context.Background(), &buf, start, start)
	require.NoError(t, err)
	assert.NotZero(t, buf.Len())
}

func TestStatusIcon(t *testing.T) {
	assert.Equal(t, statusApprovedIcon, statusIcon(models.StatusApproved))
	assert.Equal(t, statusWaitingIcon, statusIcon(models.StatusWaiting))
	assert.Equal(t, statusRejectedIcon, statusIcon(models.StatusRejected))
	assert.Equal(t, statusRejectedIcon, statusIcon(models.StatusCanceled))
}
