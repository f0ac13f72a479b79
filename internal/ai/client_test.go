package ai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/ledgerline/internal/models"
)

func completion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "test",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

type fakeAPI struct {
	calls    atomic.Int32
	failures int32
	status   int
	content  string

	mu       sync.Mutex
	lastBody map[string]any
}

func (f *fakeAPI) lastModel() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody["model"]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := f.calls.Add(1)
	f.mu.Lock()
	_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if n <= f.failures {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream trouble","type":"server_error"}}`))
		return
	}
	_, _ = w.Write([]byte(completion(f.content)))
}

func newTestClient(t *testing.T, api *fakeAPI, retries int) *Client {
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return New(Config{
		APIKey:     "test",
		BaseURL:    srv.URL + "/v1",
		Model:      "test-model",
		Timeout:    time.Second,
		MaxRetries: retries,
		Backoff:    time.Millisecond,
	})
}

func TestSavingsTips(t *testing.T) {
	api := &fakeAPI{content: `{"savingsTips":["cocina en casa","revisa suscripciones","ahorra el 10%"]}`}
	c := newTestClient(t, api, 0)

	tips, err := c.SavingsTips(t.Context(), models.SavingsTipsInput{
		Income:         decimal.NewFromInt(3000),
		Expenses:       map[string]decimal.Decimal{"Comida": decimal.NewFromInt(800)},
		FinancialGoals: "viajar",
	})
	require.NoError(t, err)
	require.Len(t, tips, 3)
	require.Equal(t, "test-model", api.lastModel())
}

func TestSuggestCorrections(t *testing.T) {
	api := &fakeAPI{content: `{"corrections":[{"entryId":"tx-1","reason":"monto alto","suggestion":"verifica"}],"savingsSuggestions":[{"suggestion":"reduce","area":"Comida"}]}`}
	c := newTestClient(t, api, 0)

	health, err := c.SuggestCorrections(t.Context(),
		[]models.FinancialEntry{{ID: "tx-1", Amount: decimal.NewFromInt(900), Category: "Comida", Type: models.TransactionTypeExpense, Date: "2024-03-05"}},
		map[string]decimal.Decimal{"Comida": decimal.NewFromInt(500)},
	)
	require.NoError(t, err)
	require.Equal(t, "tx-1", health.Corrections[0].EntryID)
	require.Equal(t, "Comida", health.SavingsSuggestions[0].Area)
}

func TestRetriesServerErrors(t *testing.T) {
	api := &fakeAPI{failures: 2, status: http.StatusServiceUnavailable, content: `{"savingsTips":["a"]}`}
	c := newTestClient(t, api, 2)

	tips, err := c.SavingsTips(t.Context(), models.SavingsTipsInput{})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, tips)
	require.EqualValues(t, 3, api.calls.Load())
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	api := &fakeAPI{failures: 5, status: http.StatusTooManyRequests}
	c := newTestClient(t, api, 1)

	_, err := c.SavingsTips(t.Context(), models.SavingsTipsInput{})
	require.Error(t, err)
	require.EqualValues(t, 2, api.calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	api := &fakeAPI{failures: 5, status: http.StatusBadRequest}
	c := newTestClient(t, api, 3)

	_, err := c.SavingsTips(t.Context(), models.SavingsTipsInput{})
	require.Error(t, err)
	require.EqualValues(t, 1, api.calls.Load())
}

func TestMalformedResponse(t *testing.T) {
	api := &fakeAPI{content: "not json"}
	c := newTestClient(t, api, 0)

	_, err := c.SavingsTips(t.Context(), models.SavingsTipsInput{})
	require.ErrorContains(t, err, "failed to parse AI response")
}
