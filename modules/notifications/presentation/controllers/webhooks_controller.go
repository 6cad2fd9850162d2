package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sampledesk/sampledesk/modules/notifications/services"
	"github.com/sampledesk/sampledesk/pkg/application"
	"github.com/sampledesk/sampledesk/pkg/httpapi"
	"github.com/sampledesk/sampledesk/pkg/webhooks"
)

type WebhooksController struct {
	app       application.Application
	service   *services.MailerService
	verifier  webhooks.SignatureVerifier
	protector webhooks.ReplayProtector
	basePath  string
}

func NewWebhooksController(
	app application.Application,
	verifier webhooks.SignatureVerifier,
	protector webhooks.ReplayProtector,
) application.Controller {
	return &WebhooksController{
		app:       app,
		service:   app.Service(services.MailerService{}).(*services.MailerService),
		verifier:  verifier,
		protector: protector,
		basePath:  "/webhooks",
	}
}

func (c *WebhooksController) Key() string {
	return c.basePath
}

func (c *WebhooksController) Register(r *mux.Router) {
	router := webhooks.Bind(r, c.basePath, c.verifier, c.protector)
	router.HandleFunc("/resend", c.Resend).Methods(http.MethodPost)
}

// resendEvent mirrors the provider's webhook envelope. Only the fields we
// act on are parsed.
type resendEvent struct {
	Type string `json:"type"`
	Data struct {
		EmailID string `json:"email_id"`
		Bounce  struct {
			Message string `json:"message"`
		} `json:"bounce"`
		Failed struct {
			Reason string `json:"reason"`
		} `json:"failed"`
	} `json:"data"`
}

func (c *WebhooksController) Resend(w http.ResponseWriter, r *http.Request) {
	var event resendEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}

	reason := event.Data.Bounce.Message
	if reason == "" {
		reason = event.Data.Failed.Reason
	}
	err := c.service.HandleProviderEvent(r.Context(), services.ProviderEvent{
		Type:       event.Type,
		ProviderID: event.Data.EmailID,
		Reason:     reason,
	})
	if err != nil {
		c.app.Logger().WithError(err).WithField("event_type", event.Type).Error("failed to apply provider event")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to apply provider event", nil)
		return
	}
	// Unknown ids and replays resolve to a no-op; the provider only needs a 200.
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
