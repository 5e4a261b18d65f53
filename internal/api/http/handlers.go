package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"karavanCanteen/internal/apperr"
	"karavanCanteen/internal/auth"
	"karavanCanteen/internal/cart"
	"karavanCanteen/internal/receipt"
	"karavanCanteen/internal/telemetry"
	"karavanCanteen/internal/visibility"
	"karavanCanteen/models"

	"github.com/gorilla/mux"
)

// OrderService is the lifecycle surface the handlers drive; *lifecycle.Engine implements it.
type OrderService interface {
	cart.OrderPlacer
	Transition(ctx context.Context, orderID int64, target models.OrderStatus, actor models.Actor) (*models.Order, error)
	Get(ctx context.Context, orderID int64, actor models.Actor) (*models.Order, error)
}

// DashboardService loads a dashboard view; *dashboard.Service implements it.
type DashboardService interface {
	Load(ctx context.Context, view visibility.View, actor models.Actor) ([]models.Order, error)
}

// ReportService builds reports; *reporting.Engine implements it.
type ReportService interface {
	Location() *time.Location
	DailySalesReport(ctx context.Context, date time.Time) (*models.DailySalesReport, error)
	WeeklySalesReport(ctx context.Context, date time.Time) (*models.WeeklySalesReport, error)
	MonthlySalesReport(ctx context.Context, date time.Time) (*models.MonthlySalesReport, error)
	MenuPerformanceReport(ctx context.Context, start, end time.Time) (*models.MenuPerformanceReport, error)
}

type Handler struct {
	Orders     OrderService
	Dashboards DashboardService
	Reports    ReportService
	Menu       cart.Catalog
	QR         receipt.QRGenerator
	log        *slog.Logger
	now        func() time.Time
}

func NewHandler(orders OrderService, dashboards DashboardService, reports ReportService, menu cart.Catalog, qr receipt.QRGenerator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = telemetry.Discard()
	}
	return &Handler{
		Orders:     orders,
		Dashboards: dashboards,
		Reports:    reports,
		Menu:       menu,
		QR:         qr,
		log:        logger.With("component", "http"),
		now:        time.Now,
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.healthCheck).Methods("GET")

	r.HandleFunc("/api/dashboards/{view}", h.getDashboard).Methods("GET")

	r.HandleFunc("/api/orders", h.createOrder).Methods("POST")
	r.HandleFunc("/api/orders/{id}", h.getOrder).Methods("GET")
	r.HandleFunc("/api/orders/{id}/status", h.updateOrderStatus).Methods("POST")
	r.HandleFunc("/api/orders/{id}/qrcode", h.getOrderQRCode).Methods("GET")

	r.HandleFunc("/api/reports/sales/{period}", h.getSalesReport).Methods("GET")
	r.HandleFunc("/api/reports/menu", h.getMenuReport).Methods("GET")
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "canteen",
		"timestamp": h.now().Format(time.RFC3339),
	})
}

type dashboardResponse struct {
	View      visibility.View `json:"view"`
	Orders    []models.Order  `json:"orders"`
	FetchedAt time.Time       `json:"fetched_at"`
}

func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	view := visibility.View(mux.Vars(r)["view"])
	orders, err := h.Dashboards.Load(r.Context(), view, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{View: view, Orders: orders, FetchedAt: h.now().UTC()})
}

type createOrderRequest struct {
	Items               []cart.Selection     `json:"items"`
	DeliveryLocation    string               `json:"delivery_location"`
	SpecialInstructions string               `json:"special_instructions,omitempty"`
	PaymentMethod       models.PaymentMethod `json:"payment_method,omitempty"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	c, err := cart.Build(r.Context(), h.Menu, req.Items)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := c.Checkout(r.Context(), h.Orders, actor.UserID, cart.Details{
		DeliveryLocation:    req.DeliveryLocation,
		SpecialInstructions: req.SpecialInstructions,
		PaymentMethod:       req.PaymentMethod,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	o, err := h.Orders.Get(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type statusRequest struct {
	Status models.OrderStatus `json:"status"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if !req.Status.Valid() {
		h.fail(w, r, apperr.Validation("unknown status %q", req.Status))
		return
	}
	o, err := h.Orders.Transition(r.Context(), id, req.Status, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) getOrderQRCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	o, err := h.Orders.Get(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	png, err := h.QR.Generate(o)
	if err != nil {
		h.log.ErrorContext(r.Context(), "render qr code", "order_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "qr_failed", "could not render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		h.log.WarnContext(r.Context(), "write qr code", "order_id", id, "err", err)
	}
}

func (h *Handler) getSalesReport(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.staff(w, r); !ok {
		return
	}
	date, err := h.parseDate(r.URL.Query().Get("date"), h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var report any
	switch models.PeriodKind(mux.Vars(r)["period"]) {
	case models.PeriodDaily:
		report, err = h.Reports.DailySalesReport(r.Context(), date)
	case models.PeriodWeekly:
		report, err = h.Reports.WeeklySalesReport(r.Context(), date)
	case models.PeriodMonthly:
		report, err = h.Reports.MonthlySalesReport(r.Context(), date)
	default:
		err = apperr.Validation("unknown period %q", mux.Vars(r)["period"])
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// getMenuReport covers the calendar days start..end inclusive.
func (h *Handler) getMenuReport(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.staff(w, r); !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("start") == "" || q.Get("end") == "" {
		h.fail(w, r, apperr.Validation("start and end are required"))
		return
	}
	start, err := h.parseDate(q.Get("start"), time.Time{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	end, err := h.parseDate(q.Get("end"), time.Time{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.Reports.MenuPerformanceReport(r.Context(), start, end.AddDate(0, 0, 1))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// parseDate reads YYYY-MM-DD as local midnight in the report zone. Empty yields def.
func (h *Handler) parseDate(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, h.Reports.Location())
	if err != nil {
		return time.Time{}, apperr.Validation("date %q is not YYYY-MM-DD", s)
	}
	return t, nil
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	a, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing credentials")
	}
	return a, ok
}

func (h *Handler) staff(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	a, ok := h.actor(w, r)
	if !ok {
		return a, false
	}
	if !a.Role.IsStaff() {
		writeError(w, http.StatusForbidden, "forbidden", "reports are available to canteen staff only")
		return a, false
	}
	return a, true
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", fmt.Sprintf("invalid order id %q", mux.Vars(r)["id"]))
		return 0, false
	}
	return id, true
}
