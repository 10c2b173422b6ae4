package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/zemo-mobility/ZemoPay/middleware"
	"github.com/zemo-mobility/ZemoPay/services"
	"github.com/zemo-mobility/ZemoPay/store"
	"github.com/zemo-mobility/ZemoPay/utils"
)

type AdminAdjustmentController struct {
	adjustments *store.AdjustmentStore
	deposits    *services.DepositService
}

func NewAdminAdjustmentController(adjustments *store.AdjustmentStore, deposits *services.DepositService) *AdminAdjustmentController {
	return &AdminAdjustmentController{adjustments: adjustments, deposits: deposits}
}

// List returns deposit adjustments, optionally filtered by status.
func (aac *AdminAdjustmentController) List(c *gin.Context) {
	adjustments, err := aac.adjustments.ListByStatus(c.Query("status"))
	if err != nil {
		utils.InternalServerError(c, "Failed to list adjustments", nil)
		return
	}
	utils.Success(c, "Adjustments retrieved", gin.H{"adjustments": adjustments})
}

// Approve moves a calculated or disputed adjustment to APPROVED.
func (aac *AdminAdjustmentController) Approve(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	adjustment, err := aac.deposits.Approve(principal.UserID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Adjustment approved", gin.H{"adjustment": adjustment})
}

// Process executes an approved adjustment against the held deposit.
func (aac *AdminAdjustmentController) Process(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	adjustment, err := aac.deposits.ProcessAdjustment(c.Request.Context(), principal.UserID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Adjustment processed", gin.H{"adjustment": adjustment})
}

type resolveRequest struct {
	FinalCharge int64  `json:"final_charge"`
	Resolution  string `json:"resolution" binding:"required"`
}

// Resolve closes a disputed adjustment with corrected figures.
func (aac *AdminAdjustmentController) Resolve(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid resolution data", err.Error())
		return
	}

	adjustment, err := aac.deposits.Resolve(principal.UserID, c.Param("id"), req.FinalCharge, req.Resolution)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Dispute resolved", gin.H{"adjustment": adjustment})
}
