// mock-processor emulates the payment processor's balance API for local
// development: a platform balance plus per-account balances, all settable
// over HTTP so reconciliation scenarios can be staged by hand.
package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/veltapay/wallet-backend/internal/logging"
)

type balanceAmount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type balanceResponse struct {
	Available []balanceAmount `json:"available"`
	Pending   []balanceAmount `json:"pending"`
}

type store struct {
	mu       sync.RWMutex
	platform []balanceAmount
	accounts map[string][]balanceAmount
}

func newStore() *store {
	return &store{
		platform: []balanceAmount{{Amount: "0.00", Currency: "EUR"}},
		accounts: make(map[string][]balanceAmount),
	}
}

func (s *store) get(accountRef string) ([]balanceAmount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if accountRef == "" {
		return s.platform, true
	}
	b, ok := s.accounts[accountRef]
	return b, ok
}

func (s *store) set(accountRef string, balances []balanceAmount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if accountRef == "" {
		s.platform = balances
		return
	}
	s.accounts[accountRef] = balances
}

func main() {
	logging.Init("mock-processor", "info", os.Getenv("APP_ENV"))

	st := newStore()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /v1/balance", func(w http.ResponseWriter, r *http.Request) {
		balances, ok := st.get(r.URL.Query().Get("account"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such account"})
			return
		}
		writeJSON(w, http.StatusOK, balanceResponse{Available: balances, Pending: nil})
	})

	// Test-only control endpoint: stage a balance for the platform or any
	// connected account.
	mux.HandleFunc("PUT /v1/balance", func(w http.ResponseWriter, r *http.Request) {
		var balances []balanceAmount
		if err := json.NewDecoder(r.Body).Decode(&balances); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		st.set(r.URL.Query().Get("account"), balances)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	slog.Info("mock processor started", "addr", ":8081")
	if err := http.ListenAndServe(":8081", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
