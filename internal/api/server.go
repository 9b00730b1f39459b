// Package api provides the HTTP API for watching and running the shop.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (the player's control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/cozycorner/shopsim/internal/config"
	"github.com/cozycorner/shopsim/internal/economy"
	"github.com/cozycorner/shopsim/internal/engine"
	"github.com/cozycorner/shopsim/internal/market"
	"github.com/cozycorner/shopsim/internal/metrics"
	"github.com/cozycorner/shopsim/internal/notify"
	"github.com/cozycorner/shopsim/internal/persistence"
)

// Server serves the shop over HTTP. Every handler touches shop state only
// inside Eng.Do, so requests never interleave with simulation ticks.
type Server struct {
	Shop     *engine.Shop
	Front    *economy.Shopfront
	Eng      *engine.Engine
	DB       *persistence.DB // Optional; nil disables save and the event log
	Forecast *market.Forecaster
	Feed     *notify.Buffer // Recent notifications

	Port        int
	AdminKey    string   // Bearer token for POST endpoints. Empty = POST disabled.
	CORSOrigins []string // Extra allowed origins beyond localhost dev servers
}

// Handler builds the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	adminLimiter := NewRateLimiter(120, time.Minute)
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return s.adminOnly(RateLimitMiddleware(adminLimiter, h))
	}

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/stock", s.handleStock)
	mux.HandleFunc("GET /api/v1/inventory", s.handleInventory)
	mux.HandleFunc("GET /api/v1/decorations", s.handleDecorations)
	mux.HandleFunc("GET /api/v1/customers", s.handleCustomers)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/events/log", s.handleEventLog)
	mux.HandleFunc("GET /api/v1/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/v1/catalog", s.handleCatalog)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Admin endpoints.
	mux.HandleFunc("POST /api/v1/open", admin(s.handleOpen))
	mux.HandleFunc("POST /api/v1/close", admin(s.handleClose))
	mux.HandleFunc("POST /api/v1/display", admin(s.handleDisplay))
	mux.HandleFunc("POST /api/v1/undisplay", admin(s.handleUndisplay))
	mux.HandleFunc("POST /api/v1/price", admin(s.handlePrice))
	mux.HandleFunc("POST /api/v1/buy", admin(s.handleBuy))
	mux.HandleFunc("POST /api/v1/decoration", admin(s.handleDecoration))
	mux.HandleFunc("POST /api/v1/speed", admin(s.handleSpeed))
	mux.HandleFunc("POST /api/v1/settings", admin(s.handleSettings))
	mux.HandleFunc("POST /api/v1/save", admin(s.handleSave))

	return metrics.Middleware(corsMiddleware(s.CORSOrigins, mux))
}

// Start begins serving the HTTP API in a goroutine. Shut the returned server
// down to stop it.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(extra []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range extra {
		allowedOrigins[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no SHOPSIM_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	s.Eng.Do(func() {
		score, maxCustomers := s.Front.Attractiveness()
		status = map[string]any{
			"name":           "Cozy Corner",
			"day":            s.Shop.Clock.Day,
			"sim_time":       s.Shop.Clock.String(),
			"open":           s.Shop.IsOpen(),
			"coins":          s.Front.Wallet.Balance(),
			"reputation":     s.Shop.Reputation,
			"attractiveness": score,
			"max_customers":  maxCustomers,
			"in_shop":        len(s.Shop.Active()),
			"waiting":        len(s.Shop.Pool()),
			"time_scale":     s.Shop.TimeScale,
			"autosave":       s.Shop.Autosave,
			"first_sale":     s.Shop.FirstSale,
			"tick":           s.Eng.Tick,
			"speed":          s.Eng.Speed,
			"running":        s.Eng.Running,
		}
	})
	writeJSON(w, status)
}

type stockView struct {
	economy.StockEntry
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	BasePrice decimal.Decimal `json:"base_price"`
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	var out []stockView
	s.Eng.Do(func() {
		for _, e := range s.Front.List() {
			v := stockView{StockEntry: e}
			if it, ok := s.Front.Catalog.Item(e.ItemID); ok {
				v.Name, v.Category, v.BasePrice = it.Name, it.Category, it.BasePrice
			}
			out = append(out, v)
		}
	})
	writeJSON(w, map[string]any{"stock": out})
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	var out []economy.InventoryEntry
	s.Eng.Do(func() { out = s.Front.Inventory.List() })
	writeJSON(w, map[string]any{"inventory": out})
}

func (s *Server) handleDecorations(w http.ResponseWriter, r *http.Request) {
	var out []economy.OwnedDecoration
	s.Eng.Do(func() { out = s.Front.Decorations.List() })
	writeJSON(w, map[string]any{"decorations": out})
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	var resp map[string]any
	s.Eng.Do(func() {
		resp = map[string]any{
			"in_shop": s.Shop.Active(),
			"waiting": len(s.Shop.Pool()),
		}
	})
	writeJSON(w, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var resp map[string]any
	s.Eng.Do(func() {
		resp = map[string]any{
			"day":         s.Shop.Clock.Day,
			"customers":   s.Shop.Stats.Customers,
			"sales":       s.Shop.Stats.Sales,
			"revenue":     s.Shop.Stats.Revenue,
			"profit":      s.Shop.Stats.Profit,
			"sales_ratio": s.Shop.Stats.SalesRatio(),
		}
	})
	writeJSON(w, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 30)
	var out []engine.DaySummary
	s.Eng.Do(func() {
		h := s.Shop.History
		if limit > 0 && len(h) > limit {
			h = h[len(h)-limit:]
		}
		out = append(out, h...)
	})
	writeJSON(w, map[string]any{"history": out})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	var events []notify.Event
	if s.Feed != nil {
		events = s.Feed.Events()
	}
	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := events[:0]
		for _, e := range events {
			if string(e.Kind) == kind {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	writeJSON(w, map[string]any{"events": events})
}

func (s *Server) handleEventLog(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	events, err := s.DB.RecentEvents(queryInt(r, "limit", 50))
	if err != nil {
		slog.Error("event log query failed", "error", err)
		http.Error(w, "event log unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"events": events})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	top := queryInt(r, "top", 3)
	var day int
	s.Eng.Do(func() { day = s.Shop.Clock.Day })
	trends := s.Forecast.Forecast(day, s.Front.Catalog.Items(), top)
	writeJSON(w, map[string]any{"day": day, "trending": trends})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.Front.Catalog
	writeJSON(w, map[string]any{
		"items":       cat.Items(),
		"archetypes":  cat.Archetypes(),
		"decorations": cat.Decorations(),
	})
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var err error
	s.Eng.Do(func() { err = s.Shop.Open() })
	if err != nil {
		writeError(w, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	var closed bool
	var summary engine.DaySummary
	s.Eng.Do(func() {
		closed = s.Shop.Close()
		if n := len(s.Shop.History); closed && n > 0 {
			summary = s.Shop.History[n-1]
		}
	})
	if !closed {
		writeJSON(w, map[string]any{"closed": false, "message": "shop is not open"})
		return
	}
	writeJSON(w, map[string]any{"closed": true, "summary": summary})
}

type itemRequest struct {
	ItemID   string          `json:"item_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decode(w, r, &req) {
		return
	}
	var err error
	s.Eng.Do(func() { err = s.Front.Display(req.ItemID, req.Quantity, req.Price) })
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("item displayed", "item", req.ItemID, "quantity", req.Quantity, "price", req.Price.String())
	s.handleStock(w, r)
}

func (s *Server) handleUndisplay(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decode(w, r, &req) {
		return
	}
	var err error
	s.Eng.Do(func() { err = s.Front.Undisplay(req.ItemID, req.Quantity) })
	if err != nil {
		writeError(w, err)
		return
	}
	s.handleStock(w, r)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decode(w, r, &req) {
		return
	}
	var err error
	s.Eng.Do(func() { err = s.Front.SetPrice(req.ItemID, req.Price) })
	if err != nil {
		writeError(w, err)
		return
	}
	s.handleStock(w, r)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decode(w, r, &req) {
		return
	}
	var cost, balance decimal.Decimal
	var err error
	s.Eng.Do(func() {
		cost, err = s.Front.BuyItem(req.ItemID, req.Quantity)
		balance = s.Front.Wallet.Balance()
	})
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("stock bought", "item", req.ItemID, "quantity", req.Quantity, "cost", cost.String())
	writeJSON(w, map[string]any{"item_id": req.ItemID, "quantity": req.Quantity, "cost": cost, "coins": balance})
}

func (s *Server) handleDecoration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     string `json:"id"`
		Action string `json:"action"` // buy, apply or remove
	}
	if !decode(w, r, &req) {
		return
	}
	var err error
	s.Eng.Do(func() {
		switch req.Action {
		case "buy", "":
			err = s.Front.BuyDecoration(req.ID)
		case "apply":
			err = s.Front.ApplyDecoration(req.ID)
		case "remove":
			err = s.Front.RemoveDecoration(req.ID)
		default:
			err = fmt.Errorf("%w: unknown action %q", errBadRequest, req.Action)
		}
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.handleDecorations(w, r)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Speed < 0 || req.Speed > 1000 {
		http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
		return
	}
	s.Eng.SetSpeed(req.Speed)
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, map[string]float64{"speed": s.Eng.CurrentSpeed()})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TimeScale *float64 `json:"time_scale"`
		Autosave  *bool    `json:"autosave"`
	}
	if !decode(w, r, &req) {
		return
	}
	var resp map[string]any
	s.Eng.Do(func() {
		if req.TimeScale != nil {
			s.Shop.TimeScale = config.ClampTimeScale(*req.TimeScale)
		}
		if req.Autosave != nil {
			s.Shop.Autosave = *req.Autosave
		}
		resp = map[string]any{"time_scale": s.Shop.TimeScale, "autosave": s.Shop.Autosave}
	})
	writeJSON(w, resp)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	var snap persistence.Snapshot
	s.Eng.Do(func() { snap = persistence.Capture(s.Shop, s.Front) })
	if err := s.DB.Save(snap); err != nil {
		slog.Error("save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"day": snap.Shop.Day, "message": "game saved"})
}

var errBadRequest = errors.New("bad request")

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, economy.ErrUnknownItem), errors.Is(err, economy.ErrUnknownDecoration):
		status = http.StatusNotFound
	case errors.Is(err, economy.ErrInvalidQuantity), errors.Is(err, economy.ErrInvalidPrice), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, economy.ErrInsufficientFunds),
		errors.Is(err, economy.ErrInsufficientQuantity),
		errors.Is(err, economy.ErrNotInInventory),
		errors.Is(err, economy.ErrNotOnDisplay),
		errors.Is(err, engine.ErrAlreadyOpen),
		errors.Is(err, engine.ErrNoStock):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
