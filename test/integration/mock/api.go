package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/stripe/stripe-go/v76"
)

const balanceTransactionsPath = "/v1/balance_transactions"

// StripeMock serves the Stripe balance transactions endpoint from canned data.
type StripeMock struct {
	mu           sync.Mutex
	server       *httptest.Server
	transactions []map[string]any
	status       int
	queries      []url.Values
}

// NewStripeServer starts a mock Stripe API.
func NewStripeServer() *StripeMock {
	s := &StripeMock{status: http.StatusOK}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *StripeMock) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.URL.Path != balanceTransactionsPath {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"unknown path"}}`))
		return
	}

	s.queries = append(s.queries, r.URL.Query())

	w.Header().Set("Content-Type", "application/json")
	if s.status != http.StatusOK {
		w.WriteHeader(s.status)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"mock failure"}}`))
		return
	}

	data := s.transactions
	if data == nil {
		data = []map[string]any{}
	}
	body, _ := json.Marshal(map[string]any{
		"object":   "list",
		"url":      balanceTransactionsPath,
		"has_more": false,
		"data":     data,
	})
	_, _ = w.Write(body)
}

// Backend returns a stripe backend pointed at the mock.
func (s *StripeMock) Backend() stripe.Backend {
	return stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(s.server.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
}

// SetTransactions replaces the balance transactions served by the mock.
func (s *StripeMock) SetTransactions(transactions []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = transactions
}

// SetStatus makes every request fail with the given status; 200 restores normal responses.
func (s *StripeMock) SetStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Requests returns the query strings received so far.
func (s *StripeMock) Requests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.queries...)
}

// Reset clears canned data and recorded requests.
func (s *StripeMock) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = nil
	s.queries = nil
	s.status = http.StatusOK
}

// Close stops the mock server.
func (s *StripeMock) Close() {
	s.server.Close()
}
