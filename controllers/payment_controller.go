package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/zemo-mobility/ZemoPay/middleware"
	"github.com/zemo-mobility/ZemoPay/services"
	"github.com/zemo-mobility/ZemoPay/utils"
)

type PaymentController struct {
	payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

// CreatePayment opens a payment intent for the booking total. The amount is
// always taken from the booking record.
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var input services.CreatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequest(c, "Invalid payment data", err.Error())
		return
	}

	result, err := pc.payments.CreateBookingPayment(c.Request.Context(), principal.UserID, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Payment initiated", result)
}

// CreateDepositHold opens a security-deposit hold on a confirmed booking.
func (pc *PaymentController) CreateDepositHold(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var input services.CreatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequest(c, "Invalid deposit data", err.Error())
		return
	}

	result, err := pc.payments.CreateDepositHold(c.Request.Context(), principal.UserID, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Deposit hold initiated", result)
}

// ConfirmPayment re-verifies the payment with the provider. Racing with a
// webhook is safe; the loser sees the already-settled record.
func (pc *PaymentController) ConfirmPayment(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	payment, err := pc.payments.ConfirmPayment(c.Request.Context(), principal.UserID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if payment.IsTerminal() {
		utils.Success(c, "Payment processed", gin.H{"payment": payment})
		return
	}
	utils.Success(c, "Payment is processing", gin.H{"payment": payment})
}

// ListForBooking returns the booking's payment history.
func (pc *PaymentController) ListForBooking(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	payments, err := pc.payments.PaymentsForBooking(principal.UserID, principal.Role, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Payments retrieved", gin.H{"payments": payments})
}
