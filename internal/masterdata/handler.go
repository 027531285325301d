package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/freightdesk/freightdesk/internal/platform/httpx"
)

// Handler serves master data as JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /customers and /lines.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.listCustomers)
		r.Post("/", h.createCustomer)
		r.Get("/{id}", h.getCustomer)
		r.Put("/{id}", h.updateCustomer)
		r.Delete("/{id}", h.deleteCustomer)
	})
	r.Route("/lines", func(r chi.Router) {
		r.Get("/", h.listLines)
		r.Post("/", h.createLine)
		r.Get("/{id}", h.getLine)
		r.Put("/{id}", h.updateLine)
		r.Delete("/{id}", h.deleteLine)
	})
}

func filtersFrom(r *http.Request) ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListCustomers(r.Context(), filtersFrom(r))
	if err != nil {
		h.fail(w, "list customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var c Customer
	if err := httpx.DecodeJSON(r, &c); err != nil {
		h.fail(w, "decode customer", err)
		return
	}
	created, err := h.service.CreateCustomer(r.Context(), c)
	if err != nil {
		h.fail(w, "create customer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var c Customer
	if err := httpx.DecodeJSON(r, &c); err != nil {
		h.fail(w, "decode customer", err)
		return
	}
	updated, err := h.service.UpdateCustomer(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		h.fail(w, "update customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCustomer(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listLines(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListLines(r.Context(), filtersFrom(r))
	if err != nil {
		h.fail(w, "list lines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) getLine(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.GetLine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}

func (h *Handler) createLine(w http.ResponseWriter, r *http.Request) {
	var l Line
	if err := httpx.DecodeJSON(r, &l); err != nil {
		h.fail(w, "decode line", err)
		return
	}
	created, err := h.service.CreateLine(r.Context(), l)
	if err != nil {
		h.fail(w, "create line", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	var l Line
	if err := httpx.DecodeJSON(r, &l); err != nil {
		h.fail(w, "decode line", err)
		return
	}
	updated, err := h.service.UpdateLine(r.Context(), chi.URLParam(r, "id"), l)
	if err != nil {
		h.fail(w, "update line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteLine(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteLine(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete line", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
