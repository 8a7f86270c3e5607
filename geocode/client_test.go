package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL, APIKey: "k1"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, &calls
}

func TestReverseGeocodeParsesAndCaches(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "k1", r.URL.Query().Get("api_key"))
		assert.Equal(t, "30.0444", r.URL.Query().Get("lat"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"display_name":"Tahrir, Cairo, Egypt","address":{"town":"Cairo","state":"Cairo Governorate","country":"Egypt"}}`))
	})

	addr, err := c.ReverseGeocode(context.Background(), 30.0444, 31.2357)
	require.NoError(t, err)
	assert.Equal(t, "Tahrir, Cairo, Egypt", addr.FullAddress)
	assert.Equal(t, "Cairo", addr.City)
	assert.Equal(t, "Cairo Governorate", addr.State)
	assert.Equal(t, "Egypt", addr.Country)

	again, err := c.ReverseGeocode(context.Background(), 30.04441, 31.23569)
	require.NoError(t, err)
	assert.Equal(t, addr, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestReverseGeocodeErrors(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	_, err := c.ReverseGeocode(context.Background(), 1, 1)
	require.Error(t, err)

	c, _ = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"Unable to geocode","code":404}}`))
	})
	_, err = c.ReverseGeocode(context.Background(), 1, 1)
	require.Error(t, err)
}

func TestReverseGeocodeHonorsContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.ReverseGeocode(ctx, 1, 1)
	require.Error(t, err)
}
