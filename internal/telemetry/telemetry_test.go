// internal/telemetry/telemetry_test.go
package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mwiater/foundrychat/internal/appconfig"
	"github.com/mwiater/foundrychat/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.paths = append(c.paths, r.Method+" "+r.URL.Path)
	c.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (c *collector) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	require.NoError(t, Init(context.Background(), "  "))
	assert.False(t, Enabled())
	assert.NoError(t, Shutdown(context.Background()))
}

func TestInitRejectsInvalidEndpoint(t *testing.T) {
	err := Init(context.Background(), "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid traces endpoint")
	assert.False(t, Enabled())
}

func TestTracesURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:4318":            "http://localhost:4318/v1/traces",
		"http://localhost:4318/":           "http://localhost:4318/v1/traces",
		"https://otel.example/custom/path": "https://otel.example/custom/path",
	}
	for in, want := range cases {
		got, err := tracesURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
}

func TestServiceRequestsAreExported(t *testing.T) {
	col := &collector{}
	otlp := httptest.NewServer(col)
	defer otlp.Close()

	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer service.Close()

	ctx := context.Background()
	require.NoError(t, Init(ctx, otlp.URL))
	assert.True(t, Enabled())

	cfg := appconfig.Defaults()
	client := transport.New(&cfg, transport.StaticBaseURL(service.URL))
	res := transport.Get[map[string]any](ctx, client, "/openai/status")
	require.True(t, res.IsSuccess())

	require.NoError(t, Shutdown(ctx))
	assert.False(t, Enabled())
	assert.Contains(t, col.received(), "POST /v1/traces")
}
