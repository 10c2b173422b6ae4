package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/zemo-mobility/ZemoPay/middleware"
	"github.com/zemo-mobility/ZemoPay/store"
	"github.com/zemo-mobility/ZemoPay/utils"
)

type NotificationController struct {
	notifications *store.NotificationStore
}

func NewNotificationController(notifications *store.NotificationStore) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// List returns the caller's notifications, newest first.
func (nc *NotificationController) List(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	unreadOnly := c.Query("unread") == "true"
	notifications, err := nc.notifications.ListByUser(principal.UserID, unreadOnly)
	if err != nil {
		utils.InternalServerError(c, "Failed to list notifications", nil)
		return
	}
	utils.Success(c, "Notifications retrieved", gin.H{"notifications": notifications})
}

// MarkRead marks one notification as read.
func (nc *NotificationController) MarkRead(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	if err := nc.notifications.MarkRead(principal.UserID, c.Param("id")); err != nil {
		utils.InternalServerError(c, "Failed to update notification", nil)
		return
	}
	utils.Success(c, "Notification marked read", nil)
}
