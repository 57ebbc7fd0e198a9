package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinmichaelchen/repoboard/internal/cache"
)

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{200, nil},
		{404, ErrNotFound},
		{403, ErrRateLimited},
		{429, ErrRateLimited},
		{500, ErrNetwork},
		{502, ErrNetwork},
		{400, ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			err := checkStatus(tt.code)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetHeadersAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "default", r.Header.Get("X-Default"))
		assert.Equal(t, "override", r.Header.Get("X-Shared"))
		_, _ = w.Write([]byte(`{"name":"repoboard"}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second, map[string]string{"X-Default": "default", "X-Shared": "default"})
	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.GetWithHeaders(context.Background(), srv.URL, map[string]string{"X-Shared": "override"}, &out))
	assert.Equal(t, "repoboard", out.Name)
}

func TestGetNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var out map[string]any
	err := NewClient(time.Second, nil).Get(context.Background(), srv.URL, &out)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out map[string]any
	assert.ErrorIs(t, NewClient(time.Second, nil).Get(context.Background(), srv.URL, &out), ErrNetwork)
}

func TestGetCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := NewClient(time.Second, nil, WithCache(cache.NewMemory(8, time.Minute), time.Minute))
	for range 3 {
		got, err := c.GetText(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "hello", got)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second, map[string]string{"Authorization": "Bearer tok"})
	body, err := c.PostJSON(context.Background(), srv.URL, map[string]string{"query": "{}"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{}}`, string(body))
}

func TestTimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewClient(20*time.Millisecond, nil).GetText(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNetwork)
}
