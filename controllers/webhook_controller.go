package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zemo-mobility/ZemoPay/providers"
	"github.com/zemo-mobility/ZemoPay/services"
	"github.com/zemo-mobility/ZemoPay/utils"
)

// maxWebhookBody bounds how much of a webhook payload is read.
const maxWebhookBody = 1 << 20

type WebhookController struct {
	reconciler *services.Reconciler
	registry   *providers.Registry
}

func NewWebhookController(reconciler *services.Reconciler, registry *providers.Registry) *WebhookController {
	return &WebhookController{reconciler: reconciler, registry: registry}
}

// Receive handles one webhook delivery. The signature is computed over the
// raw body, so the body must be read before any JSON binding. A 200 means
// the delivery is consumed; the provider retries anything else.
func (wc *WebhookController) Receive(c *gin.Context) {
	providerName := strings.ToUpper(c.Param("provider"))

	adapter, ok := wc.registry.Get(providerName)
	if !ok {
		utils.NotFound(c, "Unknown payment provider")
		return
	}

	rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.BadRequest(c, "Failed to read webhook body", nil)
		return
	}
	signature := c.GetHeader(adapter.SignatureHeader())

	if err := wc.reconciler.Process(providerName, rawBody, signature); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Challenge answers provider endpoint-verification probes by echoing the
// challenge token.
func (wc *WebhookController) Challenge(c *gin.Context) {
	providerName := strings.ToUpper(c.Param("provider"))
	if _, ok := wc.registry.Get(providerName); !ok {
		utils.NotFound(c, "Unknown payment provider")
		return
	}
	challenge := c.Query("challenge")
	if challenge == "" {
		challenge = c.Query("hub.challenge")
	}
	c.String(http.StatusOK, challenge)
}
