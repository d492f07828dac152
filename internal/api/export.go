package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{
	"Reference", "Client", "Artisan", "Service", "Date", "Time",
	"Amount", "Payment", "Location", "Status", "Created",
}

// handleExportBookings streams the caller's bookings as an xlsx workbook.
func (s *Server) handleExportBookings(c *gin.Context) {
	user := currentUser(c)

	bookings, err := s.bookings.ListBookingsForUser(c.Request.Context(), user.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Bookings"
	index, err := f.NewSheet(sheet)
	if err != nil {
		s.writeError(c, err)
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, header)
	}

	for i, b := range bookings {
		row := i + 2
		values := []interface{}{
			b.Reference, b.ClientName, b.ArtisanName, b.Service,
			b.Date.Format("2006-01-02"), b.Time, b.Amount, b.Payment,
			b.Location, b.Status, b.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=bookings-%d.xlsx", user.ID))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		s.logger.Error().Err(err).Msg("write xlsx export")
	}
}
