package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/auditlog"
	"github.com/sampledesk/sampledesk/modules/fulfillment/services"
	"github.com/sampledesk/sampledesk/pkg/application"
	"github.com/sampledesk/sampledesk/pkg/httpapi"
)

type AuditLogController struct {
	app      application.Application
	service  *services.AuditLogService
	basePath string
}

func NewAuditLogController(app application.Application) application.Controller {
	return &AuditLogController{
		app:      app,
		service:  app.Service(services.AuditLogService{}).(*services.AuditLogService),
		basePath: "/audit-log",
	}
}

func (c *AuditLogController) Key() string {
	return c.basePath
}

func (c *AuditLogController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.List).Methods(http.MethodGet)
}

type auditEntryResponse struct {
	ID         string          `json:"id"`
	Actor      string          `json:"actor"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (c *AuditLogController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := &auditlog.FindParams{
		Actor:      q.Get("actor"),
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		Limit:      intQuery(q.Get("limit"), 50),
		Offset:     intQuery(q.Get("offset"), 0),
	}
	if raw := q.Get("entity_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "entity_id must be a uuid", nil)
			return
		}
		params.EntityID = id
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "from must be RFC3339", nil)
			return
		}
		params.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "to must be RFC3339", nil)
			return
		}
		params.To = &t
	}

	entries, total, err := c.service.List(r.Context(), params)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	out := make([]*auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, &auditEntryResponse{
			ID:         e.ID.String(),
			Actor:      e.Actor,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID.String(),
			Before:     e.Before,
			After:      e.After,
			CreatedAt:  e.CreatedAt,
		})
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &ListResponse{Items: out, Total: total})
}
