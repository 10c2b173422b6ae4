package services

import (
	"fmt"

	"github.com/zemo-mobility/ZemoPay/config"
	"github.com/zemo-mobility/ZemoPay/models"
	"github.com/zemo-mobility/ZemoPay/store"
	"github.com/zemo-mobility/ZemoPay/utils"
	"gopkg.in/gomail.v2"
)

// Notifier delivers user-facing notifications. Delivery is best effort: a
// failed notification never fails the payment flow that triggered it.
type Notifier interface {
	Notify(userID, notificationType, title, message, bookingID string)
	NotifyOperators(title, message, bookingID string)
}

// EmailNotifier persists a notification row and mirrors it to email.
type EmailNotifier struct {
	notifications *store.NotificationStore
	users         *store.UserStore
	dialer        *gomail.Dialer
	from          string
	appBaseURL    string
}

func NewEmailNotifier(notifications *store.NotificationStore, users *store.UserStore, cfg *config.Config) *EmailNotifier {
	var dialer *gomail.Dialer
	if cfg.SMTPHost != "" {
		dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return &EmailNotifier{
		notifications: notifications,
		users:         users,
		dialer:        dialer,
		from:          cfg.SMTPFrom,
		appBaseURL:    cfg.AppBaseURL,
	}
}

func (n *EmailNotifier) Notify(userID, notificationType, title, message, bookingID string) {
	notification := &models.Notification{
		UserID:    userID,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		BookingID: bookingID,
	}
	if bookingID != "" {
		notification.ActionURL = fmt.Sprintf("%s/bookings/%s", n.appBaseURL, bookingID)
	}
	if err := n.notifications.Create(notification); err != nil {
		utils.LogError("Failed to persist notification for user %s: %v", userID, err)
		return
	}

	user, err := n.users.FindByID(userID)
	if err != nil {
		utils.LogError("Failed to load user %s for notification email: %v", userID, err)
		return
	}
	go n.sendEmail(user.Email, title, message)
}

// NotifyOperators fans an alert out to every admin account.
func (n *EmailNotifier) NotifyOperators(title, message, bookingID string) {
	admins, err := n.users.ListAdmins()
	if err != nil {
		utils.LogError("Failed to list operators for alert: %v", err)
		return
	}
	for _, admin := range admins {
		n.Notify(admin.ID, models.NotificationOperatorAlert, title, message, bookingID)
	}
}

func (n *EmailNotifier) sendEmail(to, subject, body string) {
	if n.dialer == nil || to == "" {
		return
	}
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	if err := n.dialer.DialAndSend(m); err != nil {
		utils.LogError("Failed to send notification email to %s: %v", to, err)
	}
}
