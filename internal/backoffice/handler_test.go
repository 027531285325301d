package backoffice

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk/internal/platform/httpx"
	"github.com/freightdesk/freightdesk/internal/shipment"
)

type stubGuard struct {
	seen    map[string]bool
	deleted []string
}

func (g *stubGuard) CheckAndInsert(ctx context.Context, key, module string) error {
	if g.seen[module+"/"+key] {
		return httpx.ErrDuplicate
	}
	g.seen[module+"/"+key] = true
	return nil
}

func (g *stubGuard) Delete(ctx context.Context, key, module string) error {
	delete(g.seen, module+"/"+key)
	g.deleted = append(g.deleted, key)
	return nil
}

func newTestRouter(t *testing.T, guard IdempotencyGuard) (http.Handler, *Service) {
	t.Helper()
	svc, _ := newTestService(t, Options{})
	handler := NewHandler(nil, svc, guard)
	r := chi.NewRouter()
	r.Route("/api", handler.MountRoutes)
	return r, svc
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerJobLifecycle(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rr := doJSON(t, router, http.MethodPost, "/api/jobs", map[string]any{
		"jobCode": "JOB-1", "booking": "BK1", "cost": 100, "sell": 180,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created shipment.Job
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.True(t, created.Profit.Equal(d(80)))

	rr = doJSON(t, router, http.MethodGet, "/api/jobs/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/jobs?booking=BK1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listed []shipment.Job
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	rr = doJSON(t, router, http.MethodGet, "/api/bookings/BK1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, "/api/jobs/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/jobs/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerListIsNeverNull(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rr := doJSON(t, router, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, "[]", rr.Body.String())

	rr = doJSON(t, router, http.MethodGet, "/api/receipts", nil)
	require.JSONEq(t, "[]", rr.Body.String())
}

func TestHandlerValidationProblem(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rr := doJSON(t, router, http.MethodPost, "/api/jobs", map[string]any{"jobCode": ""})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	require.Equal(t, "is required", problem.Errors["jobCode"])

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerUnknownBookingIs404(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rr := doJSON(t, router, http.MethodGet, "/api/bookings/NOPE", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerLockedUpdateIs409(t *testing.T) {
	router, svc := newTestRouter(t, nil)
	job := mustCreate(t, svc, shipment.Job{
		JobCode:            "JOB-1",
		LocalChargeTotal:   d(10),
		LocalChargeReceipt: &shipment.Voucher{DocNo: "NTTK00001"},
	})
	job.LocalChargeTotal = d(11)

	rr := doJSON(t, router, http.MethodPut, "/api/jobs/"+job.ID, job)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandlerNextDocNo(t *testing.T) {
	router, svc := newTestRouter(t, nil)
	mustCreate(t, svc, shipment.Job{JobCode: "JOB-1", PaymentOut: &shipment.Voucher{DocNo: "UNC00009"}})

	rr := doJSON(t, router, http.MethodPost, "/api/docnos/next", NextDocNoRequest{Kind: "deposit_out"})
	require.Equal(t, http.StatusOK, rr.Code)
	var res NextDocNoResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, "UNC00010", res.DocNo)

	rr = doJSON(t, router, http.MethodPost, "/api/docnos/next", NextDocNoRequest{Prefix: "9"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerPaymentStatusMessages(t *testing.T) {
	router, svc := newTestRouter(t, nil)
	job := mustCreate(t, svc, shipment.Job{
		JobCode:            "JOB-1",
		LocalChargeInvoice: "INV-7",
		Cost:               d(1_000_000),
		LocalChargeTotal:   d(800_000),
	})

	rr := doJSON(t, router, http.MethodGet, "/api/jobs/"+job.ID+"/payment-status?lang=en", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		HasMismatch bool     `json:"hasMismatch"`
		Messages    []string `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.HasMismatch)
	require.Equal(t, []string{"Local charge short by 200,000 VND"}, body.Messages)
}

func TestHandlerReceiptIdempotency(t *testing.T) {
	guard := &stubGuard{seen: map[string]bool{}}
	router, _ := newTestRouter(t, guard)
	receipt := map[string]any{"docNo": "NTTK00001", "date": "2024-05-02", "amount": 50}

	rr := doJSON(t, router, http.MethodPost, "/api/receipts", receipt, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, router, http.MethodPost, "/api/receipts", receipt, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/receipts", map[string]any{"docNo": "X1", "date": "2024-05-02", "amount": 0}, "Idempotency-Key", "k2")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, []string{"k2"}, guard.deleted)
}
