package entropy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("test-key")
	c.endpoint = srv.URL
	return c
}

func TestNewClientWithoutKey(t *testing.T) {
	c := NewClient("")
	assert.Nil(t, c)
	assert.False(t, c.Enabled())
	assert.Positive(t, c.Seed(context.Background()))
}

func TestSeedFromAPI(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string         `json:"method"`
			Params map[string]any `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "generateIntegers", req.Method)
		assert.Equal(t, "test-key", req.Params["apiKey"])
		w.Write([]byte(`{"jsonrpc":"2.0","result":{"random":{"data":[12,345]}},"id":1}`))
	})

	assert.Equal(t, int64(12*seedPart+345), c.Seed(context.Background()))
}

func TestSeedFallsBackOnAPIError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","error":{"message":"key revoked"},"id":1}`))
	})

	_, err := c.fetch(context.Background())
	assert.ErrorContains(t, err, "key revoked")
	assert.Positive(t, c.Seed(context.Background()))
}

func TestSeedFallsBackOnShortResponse(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"random":{"data":[7]}}}`))
	})

	_, err := c.fetch(context.Background())
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, int64(99), Resolve(context.Background(), 99, nil))
	assert.Positive(t, Resolve(context.Background(), 0, nil))
}
