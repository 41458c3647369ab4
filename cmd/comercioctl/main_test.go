package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/comercio-backend/pkg/config"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, handler http.HandlerFunc, args ...string) cliResult {
	t.Helper()
	baseURL := "http://127.0.0.1:1"
	if handler != nil {
		server := httptest.NewServer(handler)
		t.Cleanup(server.Close)
		baseURL = server.URL
	}
	loadConfig := func() (*config.ClientConfig, error) {
		return &config.ClientConfig{BaseURL: baseURL, Token: "cli-token"}, nil
	}

	var stdout, stderr bytes.Buffer
	root := newRootCmd(loadConfig)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestPaymentsRefundSendsAmountAndIdempotencyKey(t *testing.T) {
	id := uuid.New()
	var (
		gotPath string
		gotKey  string
		gotAuth string
		gotBody map[string]any
	)
	handler := func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusOK, `{"data":{"id":"`+uuid.NewString()+`","paymentNumber":"PAG-2026-0009","amount":"-250000","method":"CASH","status":"REFUNDED","paymentDate":"2026-08-01T00:00:00Z"}}`)
	}

	res := runCLI(t, handler, "payments", "refund", id.String(), "--amount", "250000", "--idempotency-key", "retry-1")
	require.NoError(t, res.err)

	assert.Equal(t, "POST /api/v1/payments/"+id.String()+"/refund", gotPath)
	assert.Equal(t, "retry-1", gotKey)
	assert.Equal(t, "Bearer cli-token", gotAuth)
	assert.Equal(t, "250000", gotBody["amount"])
	assert.Contains(t, res.stdout, "PAG-2026-0009")
	assert.Contains(t, res.stdout, "REFUNDED")
}

func TestPaymentsRefundGeneratesKeyForFullRefund(t *testing.T) {
	var gotKey string
	var raw []byte
	handler := func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		raw, _ = io.ReadAll(r.Body)
		writeJSON(w, http.StatusOK, `{"data":{"id":"`+uuid.NewString()+`","status":"REFUNDED"}}`)
	}

	res := runCLI(t, handler, "payments", "refund", uuid.NewString(), "--json")
	require.NoError(t, res.err)

	_, err := uuid.Parse(gotKey)
	assert.NoError(t, err, "a fresh uuid should be sent as idempotency key")
	assert.NotContains(t, string(raw), "amount")
	assert.Contains(t, res.stdout, `"status": "REFUNDED"`)
}

func TestPaymentsRefundSurfacesServerMessage(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, `{"error":{"code":"INVALID_STATE","message":"Solo se pueden reembolsar pagos completados"}}`)
	}

	res := runCLI(t, handler, "payments", "refund", uuid.NewString())
	require.Error(t, res.err)
	assert.Equal(t, "Solo se pueden reembolsar pagos completados", res.err.Error())
	assert.Contains(t, res.stderr, "Solo se pueden reembolsar pagos completados")
}

func TestPaymentsListEncodesFilters(t *testing.T) {
	var query string
	handler := func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		writeJSON(w, http.StatusOK, `{"data":{"data":[{"id":"`+uuid.NewString()+`","paymentNumber":"PAG-2026-0001","amount":"1000000","method":"BANK_TRANSFER","status":"COMPLETED","paymentDate":"2026-08-01T00:00:00Z"}],"meta":{"total":1,"page":1,"limit":10,"totalPages":1}}}`)
	}

	res := runCLI(t, handler, "payments", "list", "--status", "COMPLETED", "--from", "2026-08-01", "--search", "andina", "--limit", "10")
	require.NoError(t, res.err)

	assert.Contains(t, query, "status=COMPLETED")
	assert.Contains(t, query, "from=2026-08-01T00%3A00%3A00Z")
	assert.Contains(t, query, "search=andina")
	assert.Contains(t, query, "limit=10")
	assert.Contains(t, res.stdout, "$1,000,000")
	assert.Contains(t, res.stdout, "page 1/1 (1 total)")
}

func TestPaymentsRejectBadInputBeforeCallingAPI(t *testing.T) {
	cases := [][]string{
		{"payments", "list", "--status", "DONE"},
		{"payments", "get", "not-a-uuid"},
		{"payments", "status", uuid.NewString(), "ARCHIVED"},
		{"payments", "refund", uuid.NewString(), "--amount", "abc"},
		{"notifications", "list", "--priority", "CRITICAL"},
	}
	for _, args := range cases {
		t.Run(strings.Join(args, "_"), func(t *testing.T) {
			called := false
			handler := func(w http.ResponseWriter, r *http.Request) {
				called = true
				writeJSON(w, http.StatusOK, `{"data":{}}`)
			}
			res := runCLI(t, handler, args...)
			assert.Error(t, res.err)
			assert.False(t, called)
		})
	}
}

func TestNotificationsReadAllAndDeleteRead(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "PATCH /api/v1/notifications/read-all":
			writeJSON(w, http.StatusOK, `{"data":{"success":true,"updatedCount":4}}`)
		case "DELETE /api/v1/notifications/read":
			writeJSON(w, http.StatusOK, `{"data":{"deletedCount":2}}`)
		default:
			http.NotFound(w, r)
		}
	}

	res := runCLI(t, handler, "notifications", "read-all")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "marked 4 notifications as read")

	res = runCLI(t, handler, "notifications", "delete-read")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "deleted 2 read notifications")
}

func TestNotificationsUnreadCountPrintsBuckets(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"count":3,"byType":{"PAYMENT_FAILED":2},"byPriority":{"HIGH":2}}}`)
	}

	res := runCLI(t, handler, "notifications", "unread-count")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "total")
	assert.Contains(t, res.stdout, "type PAYMENT_FAILED")
	assert.Contains(t, res.stdout, "priority HIGH")
}

func TestGlobalFlagsOverrideConfig(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"data":{"totalPayments":0,"paymentsByStatus":{},"paymentsByMethod":{}}}`)
	}))
	t.Cleanup(server.Close)

	res := runCLI(t, nil, "--base-url", server.URL, "--token", "override", "payments", "stats")
	require.NoError(t, res.err)
	assert.Equal(t, "Bearer override", gotAuth)
	assert.Contains(t, res.stdout, "total payments")
}
