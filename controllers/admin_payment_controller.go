package controllers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"github.com/zemo-mobility/ZemoPay/services"
	"github.com/zemo-mobility/ZemoPay/store"
	"github.com/zemo-mobility/ZemoPay/utils"
)

type AdminPaymentController struct {
	payments *store.PaymentStore
	paySvc   *services.PaymentService
}

func NewAdminPaymentController(payments *store.PaymentStore, paySvc *services.PaymentService) *AdminPaymentController {
	return &AdminPaymentController{payments: payments, paySvc: paySvc}
}

func paymentFilterFromQuery(c *gin.Context) store.PaymentFilter {
	filter := store.PaymentFilter{
		Status:      c.Query("status"),
		Provider:    c.Query("provider"),
		PaymentType: c.Query("payment_type"),
		BookingID:   c.Query("booking_id"),
	}
	if from, err := time.Parse("2006-01-02", c.Query("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse("2006-01-02", c.Query("to")); err == nil {
		filter.To = &to
	}
	fmt.Sscanf(c.DefaultQuery("page", "1"), "%d", &filter.Page)
	fmt.Sscanf(c.DefaultQuery("per_page", "20"), "%d", &filter.PageSize)
	return filter
}

// List returns payments filtered by status, provider, type, and date range.
func (apc *AdminPaymentController) List(c *gin.Context) {
	filter := paymentFilterFromQuery(c)
	payments, total, err := apc.payments.List(filter)
	if err != nil {
		utils.InternalServerError(c, "Failed to list payments", nil)
		return
	}
	utils.SuccessWithPagination(c, "Payments retrieved", gin.H{"payments": payments},
		total, filter.Page, filter.PageSize)
}

// ListReview returns payments flagged by the reconciler for operator
// attention.
func (apc *AdminPaymentController) ListReview(c *gin.Context) {
	payments, err := apc.payments.ListForReview()
	if err != nil {
		utils.InternalServerError(c, "Failed to list flagged payments", nil)
		return
	}
	utils.Success(c, "Flagged payments retrieved", gin.H{"payments": payments})
}

// Export streams the filtered payments as an Excel workbook.
func (apc *AdminPaymentController) Export(c *gin.Context) {
	filter := paymentFilterFromQuery(c)
	filter.Page = 1
	filter.PageSize = 100

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Payments")
	if err != nil {
		utils.InternalServerError(c, "Failed to build export", nil)
		return
	}

	header := sheet.AddRow()
	for _, title := range []string{"ID", "Booking", "Type", "Provider", "Status", "Amount", "Currency", "Created"} {
		header.AddCell().Value = title
	}

	for {
		payments, _, err := apc.payments.List(filter)
		if err != nil {
			utils.InternalServerError(c, "Failed to list payments", nil)
			return
		}
		for _, p := range payments {
			row := sheet.AddRow()
			row.AddCell().Value = p.ID
			row.AddCell().Value = p.BookingID
			row.AddCell().Value = p.PaymentType
			row.AddCell().Value = p.Provider
			row.AddCell().Value = p.Status
			row.AddCell().SetFloat(utils.FromMinorUnits(p.Amount))
			row.AddCell().Value = p.Currency
			row.AddCell().Value = p.CreatedAt.Format(time.RFC3339)
		}
		if len(payments) < filter.PageSize {
			break
		}
		filter.Page++
	}

	filename := fmt.Sprintf("payments_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := file.Write(c.Writer); err != nil {
		utils.LogError("Failed to stream payment export: %v", err)
	}
}

// Refund reverses a completed payment, fully or partially.
func (apc *AdminPaymentController) Refund(c *gin.Context) {
	var input services.RefundInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequest(c, "Invalid refund data", err.Error())
		return
	}

	refund, err := apc.paySvc.Refund(c.Request.Context(), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Refund issued", gin.H{"refund": refund})
}
