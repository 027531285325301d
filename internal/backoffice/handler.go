package backoffice

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/freightdesk/freightdesk/internal/payment"
	"github.com/freightdesk/freightdesk/internal/platform/httpx"
	"github.com/freightdesk/freightdesk/internal/shipment"
)

// IdempotencyGuard rejects a request key that was already processed.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

const receiptModule = "receipts"

// Handler exposes the back office as a JSON API.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   IdempotencyGuard
}

// NewHandler builds a Handler. guard may be nil.
func NewHandler(logger *slog.Logger, service *Service, guard IdempotencyGuard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers the back office routes under /api.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", h.listJobs)
		r.Post("/", h.createJob)
		r.Get("/{id}", h.getJob)
		r.Put("/{id}", h.updateJob)
		r.Delete("/{id}", h.deleteJob)
		r.Get("/{id}/payment-status", h.paymentStatus)
	})
	r.Get("/bookings/{booking}", h.bookingSummary)
	r.Put("/bookings/{booking}/cost-details", h.setCostDetails)
	r.Post("/docnos/next", h.nextDocNo)
	r.Get("/receipts", h.listReceipts)
	r.Post("/receipts", h.createReceipt)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Warn(msg, slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	filter := JobFilter{
		Month:   r.URL.Query().Get("month"),
		Booking: r.URL.Query().Get("booking"),
	}
	jobs, err := h.service.ListJobs(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list jobs", err)
		return
	}
	if jobs == nil {
		jobs = []shipment.Job{}
	}
	httpx.JSON(w, http.StatusOK, jobs)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get job", err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	var job shipment.Job
	if err := httpx.DecodeJSON(r, &job); err != nil {
		h.fail(w, r, "decode job", err)
		return
	}
	created, err := h.service.CreateJob(r.Context(), job)
	if err != nil {
		h.fail(w, r, "create job", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateJob(w http.ResponseWriter, r *http.Request) {
	var job shipment.Job
	if err := httpx.DecodeJSON(r, &job); err != nil {
		h.fail(w, r, "decode job", err)
		return
	}
	updated, err := h.service.UpdateJob(r.Context(), chi.URLParam(r, "id"), job)
	if err != nil {
		h.fail(w, r, "update job", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteJob(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteJob(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "delete job", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var messageLanguages = language.NewMatcher([]language.Tag{language.Vietnamese, language.English})

type paymentStatusResponse struct {
	payment.Status
	Messages []string `json:"messages"`
}

func (h *Handler) paymentStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.PaymentStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "payment status", err)
		return
	}
	lang, _ := language.MatchStrings(messageLanguages, r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	messages := st.Messages(lang)
	if messages == nil {
		messages = []string{}
	}
	httpx.JSON(w, http.StatusOK, paymentStatusResponse{Status: st, Messages: messages})
}

func (h *Handler) bookingSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.BookingSummary(r.Context(), chi.URLParam(r, "booking"))
	if err != nil {
		h.fail(w, r, "booking summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) setCostDetails(w http.ResponseWriter, r *http.Request) {
	var details shipment.CostDetails
	if err := httpx.DecodeJSON(r, &details); err != nil {
		h.fail(w, r, "decode cost details", err)
		return
	}
	saved, err := h.service.SetBookingCostDetails(r.Context(), chi.URLParam(r, "booking"), details)
	if err != nil {
		h.fail(w, r, "set cost details", err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}

func (h *Handler) nextDocNo(w http.ResponseWriter, r *http.Request) {
	var req NextDocNoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "decode docno request", err)
		return
	}
	result, err := h.service.NextDocNo(r.Context(), req)
	if err != nil {
		h.fail(w, r, "next docno", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.service.ListReceipts(r.Context())
	if err != nil {
		h.fail(w, r, "list receipts", err)
		return
	}
	if receipts == nil {
		receipts = []shipment.Receipt{}
	}
	httpx.JSON(w, http.StatusOK, receipts)
}

func (h *Handler) createReceipt(w http.ResponseWriter, r *http.Request) {
	var rec shipment.Receipt
	if err := httpx.DecodeJSON(r, &rec); err != nil {
		h.fail(w, r, "decode receipt", err)
		return
	}
	key := r.Header.Get("Idempotency-Key")
	guarded := key != "" && h.guard != nil
	if guarded {
		if err := h.guard.CheckAndInsert(r.Context(), key, receiptModule); err != nil {
			h.fail(w, r, "receipt idempotency", err)
			return
		}
	}
	created, err := h.service.CreateReceipt(r.Context(), rec)
	if err != nil {
		if guarded {
			_ = h.guard.Delete(r.Context(), key, receiptModule)
		}
		h.fail(w, r, "create receipt", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}
