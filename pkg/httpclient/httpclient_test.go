package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/items", r.URL.Path)
		assert.Equal(t, "token secret", r.Header.Get("Authorization"))
		assert.Equal(t, "7", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"name":"gold"}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL+"/api", Config{Headers: map[string]string{"Authorization": "token secret"}})
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), "/v1/items", RequestOptions{Query: map[string][]string{"limit": {"7"}}})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, resp.UnmarshalBody(&out))
	assert.Equal(t, "gold", out.Name)
}

func TestClientCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client, err := New(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = client.Get(ctx, "/slow", RequestOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewInvalidURL(t *testing.T) {
	_, err := New("localhost")
	assert.Error(t, err)
}
