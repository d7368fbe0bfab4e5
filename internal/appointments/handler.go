package appointments

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ravenhq/raven-platform/internal/notify"
	"github.com/ravenhq/raven-platform/pkg/logging"
)

// StatusNotifier emails customers when the dashboard changes an appointment.
type StatusNotifier interface {
	SendAppointmentConfirmation(ctx context.Context, n notify.AppointmentNotification) error
	SendAppointmentCancellation(ctx context.Context, n notify.AppointmentNotification) error
}

// BusinessLookup resolves the business name and language for notifications.
type BusinessLookup interface {
	NameAndLanguage(ctx context.Context, businessID string) (name, language string, err error)
}

// Handler serves the dashboard appointment endpoints.
type Handler struct {
	repo       *Repository
	notifier   StatusNotifier
	businesses BusinessLookup
	logger     *logging.Logger
}

// NewHandler wires the appointment endpoints. notifier may be nil when email
// is not configured.
func NewHandler(repo *Repository, notifier StatusNotifier, businesses BusinessLookup, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, notifier: notifier, businesses: businesses, logger: logger}
}

// Routes mounts the dashboard appointment endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/business/{businessID}/appointments", h.list)
	r.Post("/business/{businessID}/appointments", h.create)
	r.Put("/appointments/{appointmentID}/status", h.updateStatus)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	q := r.URL.Query()

	from := q.Get("from")
	to := q.Get("to")
	if from == "" || to == "" {
		// Default to the coming week.
		now := time.Now()
		from = now.Format("2006-01-02")
		to = now.AddDate(0, 0, 7).Format("2006-01-02")
	}
	for _, d := range []string{from, to} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			http.Error(w, "from/to must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	var statuses []string
	if s := q.Get("status"); s != "" {
		switch s {
		case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
			statuses = []string{s}
		default:
			http.Error(w, "unknown status filter", http.StatusBadRequest)
			return
		}
	}

	appts, err := h.repo.ListForRange(r.Context(), businessID, from, to, statuses)
	if err != nil {
		h.logger.Error("list appointments failed", "business_id", businessID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if appts == nil {
		appts = []Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

type createRequest struct {
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	Date            string `json:"appointment_date"`
	Time            string `json:"appointment_time"`
	DurationMinutes int    `json:"duration_minutes"`
	ServiceType     string `json:"service_type"`
	Notes           string `json:"notes"`
}

func (req *createRequest) validate() string {
	if req.CustomerName == "" {
		return "customer_name is required"
	}
	if req.CustomerEmail == "" {
		return "customer_email is required"
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return "appointment_date must be YYYY-MM-DD"
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		return "appointment_time must be HH:MM"
	}
	if req.DurationMinutes < 0 {
		return "duration_minutes must be positive"
	}
	return ""
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	appt, err := h.repo.Create(r.Context(), CreateParams{
		BusinessID:      businessID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: req.DurationMinutes,
		ServiceType:     req.ServiceType,
		Notes:           req.Notes,
	})
	if err != nil {
		h.logger.Error("create appointment failed", "business_id", businessID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if appt == nil {
		http.Error(w, "slot is no longer available", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	appointmentID := chi.URLParam(r, "appointmentID")
	ctx := r.Context()

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
	default:
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	current, err := h.repo.Get(ctx, appointmentID)
	if err != nil {
		h.logger.Error("load appointment failed", "appointment_id", appointmentID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if current == nil {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}
	if !CanTransition(current.Status, req.Status) {
		http.Error(w, "cannot change status from "+current.Status+" to "+req.Status, http.StatusConflict)
		return
	}

	appt, err := h.repo.UpdateStatus(ctx, appointmentID, req.Status)
	if err != nil {
		h.logger.Error("update appointment status failed", "appointment_id", appointmentID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	h.notifyStatusChange(ctx, appt)
	writeJSON(w, http.StatusOK, appt)
}

// notifyStatusChange emails the customer about a confirmation or cancellation.
// Failures are logged, never surfaced to the dashboard caller.
func (h *Handler) notifyStatusChange(ctx context.Context, appt *Appointment) {
	if h.notifier == nil || h.businesses == nil {
		return
	}
	if appt.Status != StatusConfirmed && appt.Status != StatusCancelled {
		return
	}

	name, language, err := h.businesses.NameAndLanguage(ctx, appt.BusinessID)
	if err != nil {
		h.logger.Error("load business for notification failed", "business_id", appt.BusinessID, "error", err)
		return
	}
	n := notify.AppointmentNotification{
		AppointmentID:   appt.ID,
		BusinessID:      appt.BusinessID,
		BusinessName:    name,
		CustomerName:    appt.CustomerName,
		CustomerEmail:   appt.CustomerEmail,
		CustomerPhone:   appt.CustomerPhone,
		Date:            appt.Date,
		Time:            appt.Time,
		DurationMinutes: appt.DurationMinutes,
		ServiceType:     appt.ServiceType,
		Notes:           appt.Notes,
		Language:        language,
	}

	switch appt.Status {
	case StatusConfirmed:
		err = h.notifier.SendAppointmentConfirmation(ctx, n)
	case StatusCancelled:
		err = h.notifier.SendAppointmentCancellation(ctx, n)
	}
	if err != nil {
		h.logger.Error("appointment notification failed",
			"appointment_id", appt.ID, "status", appt.Status, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
