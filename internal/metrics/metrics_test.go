package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/ledgerline/internal/models"
)

func TestCounters(t *testing.T) {
	m := New()

	m.TransactionPosted("manual")
	m.TransactionPosted("manual")
	m.TransactionPosted("recurring")
	m.ObligationsDetected(models.PendingKindRecurring, 2, 1)
	m.PendingResolved(models.PendingStatusApproved)
	m.PendingExpired(3)
	m.DetectionFailed()

	require.Equal(t, 2.0, testutil.ToFloat64(m.transactionsPosted.WithLabelValues("manual")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.transactionsPosted.WithLabelValues("recurring")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.obligations.WithLabelValues("recurring", "pending")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.obligations.WithLabelValues("recurring", "executed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.pendingResolved.WithLabelValues("approved")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.pendingExpired))
	require.Equal(t, 1.0, testutil.ToFloat64(m.detectionFailures))
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.TransactionPosted("manual")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `ledgerline_transactions_posted_total{source="manual"} 1`)
	require.Contains(t, string(body), "go_goroutines")
}
