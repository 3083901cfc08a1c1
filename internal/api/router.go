package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cardrelay/cardrelay/internal/api/httpx"
	"github.com/cardrelay/cardrelay/internal/api/validate"
	"github.com/cardrelay/cardrelay/internal/config"
	"github.com/cardrelay/cardrelay/internal/middleware"
	"github.com/cardrelay/cardrelay/internal/services"
)

type depositResponse struct {
	Status    int    `json:"status"` // 1 accepted, 0 failed
	RequestID string `json:"request_id,omitempty"`
	Message   string `json:"message"`
}

type callbackResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type checkResponse struct {
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

func NewRouter(cfg config.Config, rs *services.RedemptionService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// ---------- card submission ----------
		r.Post("/deposit", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Type     string `json:"type"`
				Amount   int64  `json:"amount"`
				Serial   string `json:"serial"`
				Pin      string `json:"pin"`
				Username string `json:"username"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteJSON(w, http.StatusBadRequest, depositResponse{Status: 0, Message: "bad request"})
				return
			}
			red, err := rs.Submit(r.Context(), services.SubmitInput{
				Telco:    req.Type,
				Amount:   req.Amount,
				Serial:   req.Serial,
				Pin:      req.Pin,
				Username: req.Username,
			})
			if err != nil {
				var verrs validate.Errs
				if errors.As(err, &verrs) {
					httpx.WriteJSON(w, http.StatusBadRequest, depositResponse{Status: 0, Message: verrs.Error()})
					return
				}
				// persistence or provider failure; no detail leaks to the client
				httpx.WriteJSON(w, http.StatusInternalServerError, depositResponse{Status: 0, Message: "server error"})
				return
			}
			httpx.WriteJSON(w, http.StatusOK, depositResponse{Status: 1, RequestID: red.RequestID, Message: "card submitted"})
		})

		// ---------- provider callback ----------
		r.Post("/callback", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Status    int    `json:"status"`
				RequestID string `json:"request_id"`
				Value     int64  `json:"value"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteJSON(w, http.StatusBadRequest, callbackResponse{Status: 0, Message: "bad request"})
				return
			}
			if err := rs.Reconcile(r.Context(), services.CallbackInput{
				Status:    req.Status,
				RequestID: req.RequestID,
				Value:     req.Value,
			}); err != nil {
				// store failure: a 500 tells the provider to retry delivery
				httpx.WriteJSON(w, http.StatusInternalServerError, callbackResponse{Status: 0, Message: "server error"})
				return
			}
			httpx.WriteJSON(w, http.StatusOK, callbackResponse{Status: 1, Message: "received"})
		})

		// ---------- client polling ----------
		r.Get("/check/{id}", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			res, err := rs.Check(r.Context(), id)
			if err != nil {
				// always-200 polling contract
				httpx.WriteJSON(w, http.StatusOK, checkResponse{Status: "error"})
				return
			}
			httpx.WriteJSON(w, http.StatusOK, checkResponse{Status: res.Status, Amount: res.Amount})
		})
	})

	return r
}
