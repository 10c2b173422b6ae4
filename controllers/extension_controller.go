package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/zemo-mobility/ZemoPay/middleware"
	"github.com/zemo-mobility/ZemoPay/services"
	"github.com/zemo-mobility/ZemoPay/utils"
)

type ExtensionController struct {
	extensions *services.ExtensionService
}

func NewExtensionController(extensions *services.ExtensionService) *ExtensionController {
	return &ExtensionController{extensions: extensions}
}

// Propose opens a trip-extension request with a priced quote.
func (ec *ExtensionController) Propose(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var input services.ProposeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequest(c, "Invalid extension data", err.Error())
		return
	}
	input.BookingID = c.Param("id")

	extension, err := ec.extensions.Propose(principal.UserID, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Extension requested", gin.H{"extension": extension})
}

// Respond settles a pending extension with the host's decision.
func (ec *ExtensionController) Respond(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var input services.RespondInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequest(c, "Invalid response data", err.Error())
		return
	}
	input.ExtensionID = c.Param("extensionId")

	extension, err := ec.extensions.Respond(principal.UserID, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Extension response recorded", gin.H{"extension": extension})
}

// List returns the booking's extension history.
func (ec *ExtensionController) List(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	extensions, err := ec.extensions.ListForBooking(principal.UserID, principal.Role, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Extensions retrieved", gin.H{"extensions": extensions})
}
