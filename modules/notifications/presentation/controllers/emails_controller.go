package controllers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sampledesk/sampledesk/modules/notifications/domain/message"
	"github.com/sampledesk/sampledesk/modules/notifications/services"
	"github.com/sampledesk/sampledesk/pkg/application"
	"github.com/sampledesk/sampledesk/pkg/httpapi"
	"github.com/sampledesk/sampledesk/pkg/serrors"
)

type EmailsController struct {
	app      application.Application
	service  *services.MailerService
	basePath string
}

func NewEmailsController(app application.Application) application.Controller {
	return &EmailsController{
		app:      app,
		service:  app.Service(services.MailerService{}).(*services.MailerService),
		basePath: "/emails",
	}
}

func (c *EmailsController) Key() string {
	return c.basePath
}

func (c *EmailsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Status).Methods(http.MethodGet)
	router.HandleFunc("/{id}/cancel", c.Cancel).Methods(http.MethodPost)
	router.HandleFunc("/requeue-failed", c.RequeueFailed).Methods(http.MethodPost)
}

func (c *EmailsController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := &message.FindParams{
		Status: q.Get("status"),
		Type:   q.Get("type"),
		Limit:  intQuery(q.Get("limit"), 50),
		Offset: intQuery(q.Get("offset"), 0),
	}
	items, total, err := c.service.List(r.Context(), params)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	out := make([]*MessageResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toMessageResponse(item))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &ListResponse{Items: out, Total: total})
}

func (c *EmailsController) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteServiceError(w, serrors.ErrNotFound)
		return
	}
	m, err := c.service.Status(r.Context(), id)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toMessageResponse(m))
}

func (c *EmailsController) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteServiceError(w, serrors.ErrNotFound)
		return
	}
	m, err := c.service.Cancel(r.Context(), id)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toMessageResponse(m))
}

func (c *EmailsController) RequeueFailed(w http.ResponseWriter, r *http.Request) {
	n, err := c.service.RequeueFailed(r.Context())
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]int64{"requeued": n})
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
