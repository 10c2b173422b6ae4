package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zemo-mobility/ZemoPay/services"
	"github.com/zemo-mobility/ZemoPay/utils"
)

// CronController exposes the sweeps the external scheduler drives. Every
// sweep is idempotent; running one twice changes nothing.
type CronController struct {
	trips *services.TripService
}

func NewCronController(trips *services.TripService) *CronController {
	return &CronController{trips: trips}
}

// ActivateTrips moves confirmed bookings whose start date has passed to
// ACTIVE.
func (cc *CronController) ActivateTrips(c *gin.Context) {
	activated, err := cc.trips.ActivateDueTrips(time.Now())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Trip activation sweep complete", gin.H{"activated": activated})
}

// CompleteTrips moves active bookings past their end date to COMPLETED and
// bills late-return fees.
func (cc *CronController) CompleteTrips(c *gin.Context) {
	completed, err := cc.trips.CompleteDueTrips(time.Now())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Trip completion sweep complete", gin.H{"completed": completed})
}
