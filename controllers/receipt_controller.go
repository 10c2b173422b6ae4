package controllers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/zemo-mobility/ZemoPay/middleware"
	"github.com/zemo-mobility/ZemoPay/models"
	"github.com/zemo-mobility/ZemoPay/services"
	"github.com/zemo-mobility/ZemoPay/utils"
)

type ReceiptController struct {
	bookings *services.BookingService
	payments *services.PaymentService
}

func NewReceiptController(bookings *services.BookingService, payments *services.PaymentService) *ReceiptController {
	return &ReceiptController{bookings: bookings, payments: payments}
}

// Download renders the booking's payment receipt as a PDF.
func (rc *ReceiptController) Download(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)
	bookingID := c.Param("id")

	booking, err := rc.bookings.Get(principal.UserID, principal.Role, bookingID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	payments, err := rc.payments.PaymentsForBooking(principal.UserID, principal.Role, bookingID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "ZemoPay Payment Receipt")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Booking: %s", booking.ConfirmationNumber))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Trip: %s to %s (%d days)",
		booking.StartDate.Format("2 Jan 2006"),
		booking.EndDate.Format("2 Jan 2006"),
		booking.TotalDays))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Total: %s", utils.FormatAmount(booking.TotalAmount, "ZMW")))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(55, 8, "Type", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, "Provider", "1", 0, "L", false, 0, "")
	pdf.CellFormat(35, 8, "Status", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, "Amount", "1", 0, "R", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	for _, p := range payments {
		if p.Status != models.PaymentStatusCompleted &&
			p.Status != models.PaymentStatusHeld &&
			p.Status != models.PaymentStatusReleased &&
			p.Status != models.PaymentStatusRefunded {
			continue
		}
		pdf.CellFormat(55, 8, p.PaymentType, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, p.Provider, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 8, p.Status, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, utils.FormatAmount(p.Amount, p.Currency), "1", 0, "R", false, 0, "")
		pdf.Ln(8)
	}

	filename := fmt.Sprintf("receipt_%s.pdf", booking.ConfirmationNumber)
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := pdf.Output(c.Writer); err != nil {
		utils.LogError("Failed to stream receipt for booking %s: %v", bookingID, err)
	}
}
