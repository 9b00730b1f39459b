package api

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozycorner/shopsim/internal/catalog"
	"github.com/cozycorner/shopsim/internal/economy"
	"github.com/cozycorner/shopsim/internal/engine"
	"github.com/cozycorner/shopsim/internal/market"
	"github.com/cozycorner/shopsim/internal/notify"
	"github.com/cozycorner/shopsim/internal/persistence"
)

const adminKey = "secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cat := catalog.Default()
	front := economy.StarterShopfront(cat)
	shop := engine.NewShop(cat, front, rand.New(rand.NewSource(1)))
	feed := notify.NewBuffer(100)
	shop.Sink = feed
	shop.Autosave = false

	db, err := persistence.Open(filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Server{
		Shop:     shop,
		Front:    front,
		Eng:      engine.NewEngine(),
		DB:       db,
		Forecast: market.NewForecaster(1),
		Feed:     feed,
		AdminKey: adminKey,
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if method == http.MethodPost {
		req.Header.Set("Authorization", "Bearer "+adminKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestStatusIsPublic(t *testing.T) {
	h := newTestServer(t).Handler()
	rec, body := do(t, h, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["open"])
	assert.Equal(t, "100", body["coins"])
	assert.Equal(t, 5.0, body["reputation"])
	assert.Equal(t, "Day 1, 8:00", body["sim_time"])
}

func TestAdminAuth(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/open", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/open", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.AdminKey = ""
	rec, _ = do(t, s.Handler(), http.MethodPost, "/api/v1/open", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOpenDisplayCloseFlow(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec, body := do(t, h, http.MethodPost, "/api/v1/open", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, body["error"], "no items on display")

	rec, body = do(t, h, http.MethodPost, "/api/v1/display", map[string]any{"item_id": "notebook_floral", "quantity": 2, "price": 12})
	require.Equal(t, http.StatusOK, rec.Code)
	stock := body["stock"].([]any)
	require.Len(t, stock, 1)
	line := stock[0].(map[string]any)
	assert.Equal(t, "notebook_floral", line["item_id"])
	assert.Equal(t, "Floral Notebook", line["name"])
	assert.Equal(t, "12", line["price"])

	rec, body = do(t, h, http.MethodPost, "/api/v1/open", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["open"])

	rec, _ = do(t, h, http.MethodPost, "/api/v1/open", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = do(t, h, http.MethodPost, "/api/v1/close", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["closed"])
	summary := body["summary"].(map[string]any)
	assert.Equal(t, 1.0, summary["day"])

	rec, body = do(t, h, http.MethodPost, "/api/v1/close", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["closed"])

	_, body = do(t, h, http.MethodGet, "/api/v1/history", nil)
	assert.Len(t, body["history"], 1)

	_, body = do(t, h, http.MethodGet, "/api/v1/events?kind=shop_opened", nil)
	assert.Len(t, body["events"], 1)
}

func TestDisplayErrors(t *testing.T) {
	h := newTestServer(t).Handler()

	rec, _ := do(t, h, http.MethodPost, "/api/v1/display", map[string]any{"item_id": "unicorn", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/display", map[string]any{"item_id": "plushie_cat", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/display", map[string]any{"item_id": "candle_lavender", "quantity": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/price", map[string]any{"item_id": "plushie_cat", "price": 20})
	assert.Equal(t, http.StatusConflict, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/display", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+adminKey)
	raw := httptest.NewRecorder()
	h.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestBuyAndDecorate(t *testing.T) {
	h := newTestServer(t).Handler()

	rec, body := do(t, h, http.MethodPost, "/api/v1/buy", map[string]any{"item_id": "candle_lavender", "quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", body["cost"])
	assert.Equal(t, "58", body["coins"])

	rec, _ = do(t, h, http.MethodPost, "/api/v1/buy", map[string]any{"item_id": "candle_lavender", "quantity": 10})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = do(t, h, http.MethodPost, "/api/v1/decoration", map[string]any{"id": "plant_succulent", "action": "buy"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["decorations"], 1)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/decoration", map[string]any{"id": "plant_succulent", "action": "paint"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/decoration", map[string]any{"id": "wallpaper_pink", "action": "buy"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	_, body = do(t, h, http.MethodGet, "/api/v1/status", nil)
	assert.Equal(t, "33", body["coins"])
}

func TestSettingsAndSpeed(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec, body := do(t, h, http.MethodPost, "/api/v1/settings", map[string]any{"time_scale": 5, "autosave": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["time_scale"])
	assert.Equal(t, true, body["autosave"])

	rec, body = do(t, h, http.MethodPost, "/api/v1/speed", map[string]any{"speed": 4})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4.0, body["speed"])

	rec, _ = do(t, h, http.MethodPost, "/api/v1/speed", map[string]any{"speed": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSavePersistsSnapshot(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec, _ := do(t, h, http.MethodPost, "/api/v1/save", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	snap, err := s.DB.Load(s.Front.Catalog)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Shop.Day)
	assert.Len(t, snap.Inventory, 3)
}

func TestReadEndpoints(t *testing.T) {
	h := newTestServer(t).Handler()

	rec, body := do(t, h, http.MethodGet, "/api/v1/forecast?top=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["trending"], 2)

	_, body = do(t, h, http.MethodGet, "/api/v1/catalog", nil)
	assert.Len(t, body["items"], 5)
	assert.Len(t, body["archetypes"], 3)

	_, body = do(t, h, http.MethodGet, "/api/v1/inventory", nil)
	assert.Len(t, body["inventory"], 3)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/events/log", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/stats", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shop_reputation")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	s.CORSOrigins = []string{"https://shop.example.com"}
	h := s.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/open", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))
	assert.Equal(t, 61, rl.RetryAfter("1.2.3.4"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
