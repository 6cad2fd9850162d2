package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/order"
	"github.com/sampledesk/sampledesk/modules/fulfillment/services"
	"github.com/sampledesk/sampledesk/pkg/application"
	"github.com/sampledesk/sampledesk/pkg/httpapi"
)

type OrdersController struct {
	app      application.Application
	service  *services.OrderService
	validate *validator.Validate
	basePath string
}

func NewOrdersController(app application.Application) application.Controller {
	return &OrdersController{
		app:      app,
		service:  app.Service(services.OrderService{}).(*services.OrderService),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		basePath: "/orders",
	}
}

func (c *OrdersController) Key() string {
	return c.basePath
}

func (c *OrdersController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/{id}/pack", c.Pack).Methods(http.MethodPost)
	router.HandleFunc("/{id}/ship", c.Ship).Methods(http.MethodPost)
}

func (c *OrdersController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := order.FindParams{
		Status:    q.Get("status"),
		CompanyID: q.Get("company_id"),
		Limit:     intQuery(q.Get("limit"), 50),
		Offset:    intQuery(q.Get("offset"), 0),
	}
	items, total, err := c.service.List(r.Context(), params)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	out := make([]*OrderResponse, 0, len(items))
	for _, item := range items {
		out = append(out, c.withPriority(r, item))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &ListResponse{Items: out, Total: total})
}

func (c *OrdersController) Get(w http.ResponseWriter, r *http.Request) {
	entity, err := c.resolve(r)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, c.withPriority(r, entity))
}

type packDTO struct {
	LotNumbers []string               `json:"lot_numbers" validate:"required"`
	Checklist  order.PackingChecklist `json:"checklist"`
}

func (c *OrdersController) Pack(w http.ResponseWriter, r *http.Request) {
	entity, err := c.resolve(r)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	var dto packDTO
	if !c.decode(w, r, &dto) {
		return
	}
	packed, err := c.service.MarkPacked(r.Context(), entity.ID, dto.LotNumbers, dto.Checklist)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, c.withPriority(r, packed))
}

type shipDTO struct {
	Carrier        string  `json:"carrier" validate:"required"`
	TrackingNumber string  `json:"tracking_number" validate:"required"`
	PackageCount   int     `json:"package_count"`
	WeightKg       float64 `json:"weight_kg"`
	LabelAttached  bool    `json:"label_attached"`
	DocsAttached   bool    `json:"docs_attached"`
	NotifyCustomer bool    `json:"notify_customer"`
}

func (c *OrdersController) Ship(w http.ResponseWriter, r *http.Request) {
	entity, err := c.resolve(r)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	var dto shipDTO
	if !c.decode(w, r, &dto) {
		return
	}
	shipped, err := c.service.MarkShipped(r.Context(), entity.ID, order.ShipmentDetails{
		Carrier:        dto.Carrier,
		TrackingNumber: dto.TrackingNumber,
		PackageCount:   dto.PackageCount,
		WeightKg:       dto.WeightKg,
		LabelAttached:  dto.LabelAttached,
		DocsAttached:   dto.DocsAttached,
	}, dto.NotifyCustomer)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, c.withPriority(r, shipped))
}

func (c *OrdersController) resolve(r *http.Request) (*order.Order, error) {
	raw := mux.Vars(r)["id"]
	if id, err := uuid.Parse(raw); err == nil {
		return c.service.GetByID(r.Context(), id)
	}
	return c.service.GetByDisplayID(r.Context(), raw)
}

// withPriority annotates the response with the computed queue priority.
// Priority lookup failures are not fatal for reads.
func (c *OrdersController) withPriority(r *http.Request, o *order.Order) *OrderResponse {
	priority, err := c.service.Priority(r.Context(), o)
	if err != nil {
		priority = ""
	}
	return toOrderResponse(o, priority)
}

func (c *OrdersController) decode(w http.ResponseWriter, r *http.Request, dto any) bool {
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
