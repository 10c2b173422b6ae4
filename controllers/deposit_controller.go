package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/zemo-mobility/ZemoPay/middleware"
	"github.com/zemo-mobility/ZemoPay/services"
	"github.com/zemo-mobility/ZemoPay/utils"
)

type DepositController struct {
	deposits *services.DepositService
}

func NewDepositController(deposits *services.DepositService) *DepositController {
	return &DepositController{deposits: deposits}
}

// Release returns the held deposit after the trip ends. Re-releasing is a
// no-op success.
func (dc *DepositController) Release(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	deposit, err := dc.deposits.Release(c.Request.Context(), principal.UserID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Deposit released", gin.H{"deposit": deposit})
}

// Capture charges part or all of the held deposit for damage.
func (dc *DepositController) Capture(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var input services.CaptureInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequest(c, "Invalid capture data", err.Error())
		return
	}
	input.BookingID = c.Param("id")

	charge, err := dc.deposits.CaptureForDamage(c.Request.Context(), principal.UserID, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Damage charge applied", gin.H{"charge": charge})
}

// CreateAdjustment files the host's itemized claim against the deposit.
func (dc *DepositController) CreateAdjustment(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var input services.AdjustmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequest(c, "Invalid adjustment data", err.Error())
		return
	}
	input.BookingID = c.Param("id")

	adjustment, err := dc.deposits.CreateAdjustment(principal.UserID, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Adjustment filed", gin.H{"adjustment": adjustment})
}

type disputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Dispute lets the renter contest an adjustment before processing.
func (dc *DepositController) Dispute(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var req disputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid dispute data", err.Error())
		return
	}

	adjustment, err := dc.deposits.Dispute(principal.UserID, c.Param("adjustmentId"), req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Adjustment disputed", gin.H{"adjustment": adjustment})
}
