package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/zemo-mobility/ZemoPay/middleware"
	"github.com/zemo-mobility/ZemoPay/services"
	"github.com/zemo-mobility/ZemoPay/utils"
)

type BookingController struct {
	bookings *services.BookingService
}

func NewBookingController(bookings *services.BookingService) *BookingController {
	return &BookingController{bookings: bookings}
}

// Create opens a PENDING booking for the authenticated renter.
func (bc *BookingController) Create(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var input services.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequest(c, "Invalid booking data", err.Error())
		return
	}

	booking, err := bc.bookings.Create(principal.UserID, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Booking created", gin.H{"booking": booking})
}

// Get returns one booking with its payment state.
func (bc *BookingController) Get(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	booking, err := bc.bookings.Get(principal.UserID, principal.Role, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Booking retrieved", gin.H{"booking": booking})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel terminates a pending or confirmed booking and refunds any
// completed booking payment.
func (bc *BookingController) Cancel(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var req cancelRequest
	_ = c.ShouldBindJSON(&req)

	booking, err := bc.bookings.Cancel(c.Request.Context(), principal.UserID, principal.Role, c.Param("id"), req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Booking cancelled", gin.H{"booking": booking})
}
