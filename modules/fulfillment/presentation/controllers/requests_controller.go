package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/request"
	"github.com/sampledesk/sampledesk/modules/fulfillment/services"
	"github.com/sampledesk/sampledesk/pkg/application"
	"github.com/sampledesk/sampledesk/pkg/httpapi"
)

type RequestsController struct {
	app      application.Application
	service  *services.RequestService
	validate *validator.Validate
	basePath string
}

func NewRequestsController(app application.Application) application.Controller {
	return &RequestsController{
		app:      app,
		service:  app.Service(services.RequestService{}).(*services.RequestService),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		basePath: "/requests",
	}
}

func (c *RequestsController) Key() string {
	return c.basePath
}

func (c *RequestsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Update).Methods(http.MethodPatch)
	router.HandleFunc("/{id}", c.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/{id}/claim", c.Claim).Methods(http.MethodPost)
	router.HandleFunc("/{id}/approve", c.Approve).Methods(http.MethodPost)
	router.HandleFunc("/{id}/reject", c.Reject).Methods(http.MethodPost)
	router.HandleFunc("/{id}/request-info", c.RequestInfo).Methods(http.MethodPost)
	router.HandleFunc("/{id}/respond-info", c.RespondInfo).Methods(http.MethodPost)
	router.HandleFunc("/{id}/lines", c.AddLine).Methods(http.MethodPost)
	router.HandleFunc("/{id}/lines/{index}", c.EditLine).Methods(http.MethodPut)
	router.HandleFunc("/{id}/lines/{index}", c.RemoveLine).Methods(http.MethodDelete)
}

type createRequestDTO struct {
	DisplayID    string           `json:"display_id"`
	CompanyID    string           `json:"company_id" validate:"required"`
	CompanyName  string           `json:"company_name"`
	CompanyVIP   bool             `json:"company_vip"`
	ContactName  string           `json:"contact_name"`
	ContactEmail string           `json:"contact_email" validate:"required,email"`
	BriefText    string           `json:"brief_text"`
	Lines        []ProductLineDTO `json:"lines" validate:"dive"`
}

func (c *RequestsController) Create(w http.ResponseWriter, r *http.Request) {
	var dto createRequestDTO
	if !c.decode(w, r, &dto) {
		return
	}

	lines := make([]request.ProductLine, 0, len(dto.Lines))
	for _, l := range dto.Lines {
		lines = append(lines, l.toDomain())
	}
	created, err := c.service.Create(r.Context(), &services.CreateRequestInput{
		DisplayID:    dto.DisplayID,
		CompanyID:    dto.CompanyID,
		CompanyName:  dto.CompanyName,
		CompanyVIP:   dto.CompanyVIP,
		ContactName:  dto.ContactName,
		ContactEmail: dto.ContactEmail,
		BriefText:    dto.BriefText,
		Lines:        lines,
	})
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, toRequestResponse(created))
}

func (c *RequestsController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := &request.FindParams{
		Status:    q.Get("status"),
		ClaimedBy: q.Get("claimed_by"),
		CompanyID: q.Get("company_id"),
		Limit:     intQuery(q.Get("limit"), 50),
		Offset:    intQuery(q.Get("offset"), 0),
	}
	items, total, err := c.service.List(r.Context(), params)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	out := make([]*RequestResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toRequestResponse(item))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &ListResponse{Items: out, Total: total})
}

func (c *RequestsController) Get(w http.ResponseWriter, r *http.Request) {
	entity, err := c.resolve(r)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toRequestResponse(entity))
}

type updateRequestDTO struct {
	CompanyName  *string `json:"company_name"`
	ContactName  *string `json:"contact_name"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
	BriefText    *string `json:"brief_text"`
}

func (c *RequestsController) Update(w http.ResponseWriter, r *http.Request) {
	entity, err := c.resolve(r)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	var dto updateRequestDTO
	if !c.decode(w, r, &dto) {
		return
	}
	updated, err := c.service.Update(r.Context(), entity.ID, &services.UpdateRequestInput{
		CompanyName:  dto.CompanyName,
		ContactName:  dto.ContactName,
		ContactEmail: dto.ContactEmail,
		BriefText:    dto.BriefText,
	})
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toRequestResponse(updated))
}

func (c *RequestsController) Delete(w http.ResponseWriter, r *http.Request) {
	entity, err := c.resolve(r)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	if err := c.service.Delete(r.Context(), entity.ID); err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *RequestsController) Claim(w http.ResponseWriter, r *http.Request) {
	entity, err := c.resolve(r)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	claimed, err := c.service.Claim(r.Context(), entity.ID)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toRequestResponse(claimed))
}

type approveDTO struct {
	Notes string `json:"notes"`
}

func (c *RequestsController) Approve(w http.ResponseWriter, r *http.Request) {
	entity, err := c.resolve(r)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	var dto approveDTO
	if !c.decode(w, r, &dto) {
		return
	}
	approved, spawned, err := c.service.Approve(r.Context(), entity.ID, dto.Notes)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"request": toRequestResponse(approved),
		"order":   toOrderResponse(spawned, ""),
	})
}

type rejectDTO struct {
	Reason string `json:"reason" validate:"required"`
}

func (c *RequestsController) Reject(w http.ResponseWriter, r *http.Request) {
	entity, err := c.resolve(r)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	var dto rejectDTO
	if !c.decode(w, r, &dto) {
		return
	}
	rejected, err := c.service.Reject(r.Context(), entity.ID, dto.Reason)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toRequestResponse(rejected))
}

type infoDTO struct {
	Message string `json:"message" validate:"required"`
}

func (c *RequestsController) RequestInfo(w http.ResponseWriter, r *http.Request) {
	entity, err := c.resolve(r)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	var dto infoDTO
	if !c.decode(w, r, &dto) {
		return
	}
	parked, err := c.service.RequestInfo(r.Context(), entity.ID, dto.Message)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toRequestResponse(parked))
}

func (c *RequestsController) RespondInfo(w http.ResponseWriter, r *http.Request) {
	entity, err := c.resolve(r)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	var dto infoDTO
	if !c.decode(w, r, &dto) {
		return
	}
	back, err := c.service.RespondInfo(r.Context(), entity.ID, dto.Message)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toRequestResponse(back))
}

type addLineDTO struct {
	ProductLineDTO
	Reason string `json:"reason" validate:"required"`
}

func (c *RequestsController) AddLine(w http.ResponseWriter, r *http.Request) {
	entity, err := c.resolve(r)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	var dto addLineDTO
	if !c.decode(w, r, &dto) {
		return
	}
	updated, err := c.service.AddProductLine(r.Context(), entity.ID, dto.toDomain(), dto.Reason)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toRequestResponse(updated))
}

func (c *RequestsController) EditLine(w http.ResponseWriter, r *http.Request) {
	entity, index, ok := c.resolveLine(w, r)
	if !ok {
		return
	}
	var dto addLineDTO
	if !c.decode(w, r, &dto) {
		return
	}
	updated, err := c.service.EditProductLine(r.Context(), entity.ID, index, dto.toDomain(), dto.Reason)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toRequestResponse(updated))
}

type removeLineDTO struct {
	Reason string `json:"reason" validate:"required"`
}

func (c *RequestsController) RemoveLine(w http.ResponseWriter, r *http.Request) {
	entity, index, ok := c.resolveLine(w, r)
	if !ok {
		return
	}
	var dto removeLineDTO
	if !c.decode(w, r, &dto) {
		return
	}
	updated, err := c.service.RemoveProductLine(r.Context(), entity.ID, index, dto.Reason)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toRequestResponse(updated))
}

// resolve accepts either the internal uuid or the human-readable display id.
func (c *RequestsController) resolve(r *http.Request) (*request.Request, error) {
	raw := mux.Vars(r)["id"]
	if id, err := uuid.Parse(raw); err == nil {
		return c.service.GetByID(r.Context(), id)
	}
	return c.service.GetByDisplayID(r.Context(), raw)
}

func (c *RequestsController) resolveLine(w http.ResponseWriter, r *http.Request) (*request.Request, int, bool) {
	entity, err := c.resolve(r)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return nil, 0, false
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "line index must be an integer", nil)
		return nil, 0, false
	}
	return entity, index, true
}

func (c *RequestsController) decode(w http.ResponseWriter, r *http.Request, dto any) bool {
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return false
	}
	if err := c.validate.Struct(dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
		return false
	}
	return true
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
