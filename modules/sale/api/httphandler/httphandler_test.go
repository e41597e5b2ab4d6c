package httphandler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/modules/sale/repository/memory"
	"github.com/gaze-network/batchsale/modules/sale/stats"
	"github.com/gaze-network/batchsale/modules/sale/tier"
	"github.com/gaze-network/batchsale/pkg/btcpay"
	"github.com/gaze-network/batchsale/pkg/errorhandler"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "webhook-secret"

type fakeIssuer struct {
	last entity.PurchaseRequest
	err  error
}

func (f *fakeIssuer) Issue(_ context.Context, req entity.PurchaseRequest) (*entity.Invoice, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	now := time.Unix(1_700_000_000, 0)
	return &entity.Invoice{
		ID:             "inv_01h455vb4pex5vsknk084sn02q",
		PaymentRequest: "lnbc40u1...",
		AmountSats:     int64(req.BatchCount) * 2000,
		BatchCount:     req.BatchCount,
		TokenAmount:    uint64(req.BatchCount) * 700,
		Tier:           req.Tier,
		Status:         entity.InvoiceStatusPending,
		CreatedAt:      now,
		ExpiresAt:      now.Add(15 * time.Minute),
	}, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	confirmed []string
	changed   []string
	err       error
}

func (f *fakeNotifier) OnPaymentConfirmed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, id)
	return f.err
}

func (f *fakeNotifier) OnStatusChanged(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = append(f.changed, id)
	return f.err
}

type fakeStats stats.Snapshot

func (f fakeStats) Snapshot() stats.Snapshot {
	return stats.Snapshot(f)
}

type harness struct {
	app      *fiber.App
	issuer   *fakeIssuer
	store    *memory.Repository
	notifier *fakeNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		app:      fiber.New(fiber.Config{ErrorHandler: errorhandler.NewHTTPErrorHandler()}),
		issuer:   &fakeIssuer{},
		store:    memory.NewRepository(),
		notifier: &fakeNotifier{},
	}
	snapshot := fakeStats{
		LedgerStats: entity.LedgerStats{TotalSupply: 7000, TotalDistributed: 1400, Remaining: 5600},
		FetchedAt:   time.Unix(1_700_000_000, 0),
	}
	handler := New(h.issuer, h.store, h.notifier, snapshot, testWebhookSecret)
	require.NoError(t, handler.Mount(h.app))
	return h
}

func (h *harness) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func postJSON(path string, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func TestCreatePurchase(t *testing.T) {
	t.Run("score resolves the tier", func(t *testing.T) {
		h := newHarness(t)
		status, body := h.do(t, postJSON("/sale/v1/purchases",
			`{"rgbInvoice":"rgb:utxob:abc","batchCount":2,"score":640,"idempotencyKey":"purchase-1"}`))
		require.Equal(t, http.StatusCreated, status, string(body))

		var resp common.HttpResponse[invoiceResult]
		require.NoError(t, json.Unmarshal(body, &resp))
		require.NotNil(t, resp.Result)
		assert.Equal(t, tier.Silver.Name, h.issuer.last.Tier)
		assert.EqualValues(t, 4000, resp.Result.AmountSats)
		assert.Equal(t, "0.00004", resp.Result.AmountBTC.String())
		assert.Equal(t, "PENDING", resp.Result.Status)
		assert.Nil(t, resp.Result.PaidAt)
	})

	t.Run("idempotency key header", func(t *testing.T) {
		h := newHarness(t)
		req := postJSON("/sale/v1/purchases", `{"rgbInvoice":"rgb:utxob:abc","batchCount":1,"tier":"gold"}`)
		req.Header.Set("Idempotency-Key", "purchase-2")
		status, _ := h.do(t, req)
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "purchase-2", h.issuer.last.IdempotencyKey)
		assert.Equal(t, "gold", h.issuer.last.Tier)
	})

	testCases := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"negative score", `{"score":-1}`, nil, http.StatusBadRequest},
		{"malformed body", `{"batchCount":`, nil, http.StatusBadRequest},
		{"invalid request", `{"score":10}`, entity.NewInvalidRequest("Game score does not reach a purchase tier."), http.StatusBadRequest},
		{"expired replay", `{"score":300}`, entity.NewInvoiceExpired("inv_x"), http.StatusGone},
		{"processor down", `{"score":300}`, entity.NewProcessorUnavailable(errors.New("connection refused")), http.StatusServiceUnavailable},
		{"internal", `{"score":300}`, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.issuer.err = tc.err
			status, body := h.do(t, postJSON("/sale/v1/purchases", tc.body))
			assert.Equal(t, tc.status, status, string(body))
		})
	}
}

func TestCreatePurchaseErrorMessage(t *testing.T) {
	h := newHarness(t)
	h.issuer.err = entity.NewInvalidRequest("Batch count over limit per tier.")
	status, body := h.do(t, postJSON("/sale/v1/purchases", `{"score":300}`))
	require.Equal(t, http.StatusBadRequest, status)

	var resp errorhandler.Response
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "Batch count over limit per tier.", resp.Error)
	assert.Equal(t, "INVALID_REQUEST", resp.Code)
}

func TestGetInvoice(t *testing.T) {
	h := newHarness(t)
	now := time.Now()
	require.NoError(t, h.store.CreateInvoice(context.Background(), &entity.Invoice{
		ID:             "inv_a",
		IdempotencyKey: "key-a",
		Status:         entity.InvoiceStatusSettled,
		PaidAt:         now,
		Transfer:       &entity.TransferArtifact{TxID: "tx1", Amount: 700},
		CreatedAt:      now,
		ExpiresAt:      now.Add(15 * time.Minute),
	}))

	status, body := h.do(t, httptest.NewRequest(http.MethodGet, "/sale/v1/invoices/inv_a", nil))
	require.Equal(t, http.StatusOK, status)
	var resp common.HttpResponse[invoiceResult]
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "SETTLED", resp.Result.Status)
	require.NotNil(t, resp.Result.PaidAt)
	require.NotNil(t, resp.Result.Transfer)
	assert.Equal(t, "tx1", resp.Result.Transfer.TxID)

	status, _ = h.do(t, httptest.NewRequest(http.MethodGet, "/sale/v1/invoices/inv_missing", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGetStats(t *testing.T) {
	h := newHarness(t)
	status, body := h.do(t, httptest.NewRequest(http.MethodGet, "/sale/v1/stats", nil))
	require.Equal(t, http.StatusOK, status)

	var resp common.HttpResponse[getStatsResult]
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Nil(t, resp.Error)
	assert.EqualValues(t, 5600, resp.Result.Remaining)
	require.NotNil(t, resp.Result.FetchedAt)
	assert.EqualValues(t, 1_700_000_000, *resp.Result.FetchedAt)
}

func TestTiers(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, httptest.NewRequest(http.MethodGet, "/sale/v1/tiers", nil))
	require.Equal(t, http.StatusOK, status)
	var tiers common.HttpResponse[[]tier.Tier]
	require.NoError(t, json.Unmarshal(body, &tiers))
	assert.Equal(t, tier.All(), *tiers.Result)

	status, body = h.do(t, httptest.NewRequest(http.MethodGet, "/sale/v1/tiers/resolve?score=1000", nil))
	require.Equal(t, http.StatusOK, status)
	var resolved common.HttpResponse[resolveTierResult]
	require.NoError(t, json.Unmarshal(body, &resolved))
	assert.Equal(t, "gold", resolved.Result.Name)
	assert.True(t, resolved.Result.Gated)

	status, body = h.do(t, httptest.NewRequest(http.MethodGet, "/sale/v1/tiers/resolve?score=199", nil))
	require.Equal(t, http.StatusOK, status)
	resolved = common.HttpResponse[resolveTierResult]{}
	require.NoError(t, json.Unmarshal(body, &resolved))
	assert.Equal(t, tier.Ungated.Name, resolved.Result.Name)
	assert.False(t, resolved.Result.Gated)

	for _, query := range []string{"", "?score=abc", "?score=-5"} {
		status, _ = h.do(t, httptest.NewRequest(http.MethodGet, "/sale/v1/tiers/resolve"+query, nil))
		assert.Equal(t, http.StatusBadRequest, status, query)
	}
}

func webhookRequest(body string, secret string) *http.Request {
	req := postJSON("/sale/v1/webhooks/btcpay", body)
	req.Header.Set(btcpay.SignatureHeader, btcpay.Sign([]byte(body), secret))
	return req
}

func TestBTCPayWebhook(t *testing.T) {
	h := newHarness(t)

	status, _ := h.do(t, webhookRequest(`{"type":"InvoiceSettled","invoiceId":"p1"}`, testWebhookSecret))
	assert.Equal(t, http.StatusOK, status)
	status, _ = h.do(t, webhookRequest(`{"type":"InvoiceExpired","invoiceId":"p2"}`, testWebhookSecret))
	assert.Equal(t, http.StatusOK, status)
	status, _ = h.do(t, webhookRequest(`{"type":"InvoiceCreated","invoiceId":"p3"}`, testWebhookSecret))
	assert.Equal(t, http.StatusOK, status)

	assert.Equal(t, []string{"p1"}, h.notifier.confirmed)
	assert.Equal(t, []string{"p2"}, h.notifier.changed)

	t.Run("bad signature", func(t *testing.T) {
		status, _ := h.do(t, webhookRequest(`{"type":"InvoiceSettled","invoiceId":"p4"}`, "other-secret"))
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Len(t, h.notifier.confirmed, 1)
	})

	t.Run("signed but malformed body", func(t *testing.T) {
		status, _ := h.do(t, webhookRequest(`{"type":"InvoiceSettled","invoiceId":`, testWebhookSecret))
		assert.Equal(t, http.StatusBadRequest, status)
		status, _ = h.do(t, webhookRequest(`{"invoiceId":"p4"}`, testWebhookSecret))
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Len(t, h.notifier.confirmed, 1)
	})

	t.Run("unknown invoice is acknowledged", func(t *testing.T) {
		h.notifier.err = errors.Wrap(errs.NotFound, "invoice")
		status, _ := h.do(t, webhookRequest(`{"type":"InvoiceSettled","invoiceId":"p5"}`, testWebhookSecret))
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("dispatch failure is retried by the sender", func(t *testing.T) {
		h.notifier.err = errors.New("boom")
		status, _ := h.do(t, webhookRequest(`{"type":"InvoiceSettled","invoiceId":"p6"}`, testWebhookSecret))
		assert.Equal(t, http.StatusInternalServerError, status)
	})
}

func TestGetIncidents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	now := time.Now()
	for _, inv := range []*entity.Invoice{
		{ID: "inv_failed", IdempotencyKey: "k1", Status: entity.InvoiceStatusSettlementFailed},
		{ID: "inv_pending_transfer", IdempotencyKey: "k2", Status: entity.InvoiceStatusSettled},
		{ID: "inv_done", IdempotencyKey: "k3", Status: entity.InvoiceStatusSettled, Transfer: &entity.TransferArtifact{TxID: "tx"}},
		{ID: "inv_open", IdempotencyKey: "k4", Status: entity.InvoiceStatusPending},
	} {
		inv.CreatedAt, inv.ExpiresAt = now, now.Add(15*time.Minute)
		require.NoError(t, h.store.CreateInvoice(ctx, inv))
	}

	status, body := h.do(t, httptest.NewRequest(http.MethodGet, "/sale/v1/incidents", nil))
	require.Equal(t, http.StatusOK, status)
	var resp common.HttpResponse[[]incident]
	require.NoError(t, json.Unmarshal(body, &resp))

	events := map[string]string{}
	for _, inc := range *resp.Result {
		events[inc.Invoice.ID] = inc.Event
	}
	assert.Equal(t, map[string]string{
		"inv_failed":           incidentSettlementFailed,
		"inv_pending_transfer": incidentTransferPending,
	}, events)
}
