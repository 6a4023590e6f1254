package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelinkhq/kernelmgr/internal/infrastructure/config"
	"github.com/corelinkhq/kernelmgr/internal/shared/types"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(config.ServiceConfig{
		BaseURL: srv.URL,
		Token:   "test-token",
		Timeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)
	return client, srv
}

func TestListSpecs(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/kernelspecs", r.URL.Path)
		assert.Equal(t, "token test-token", r.Header.Get("Authorization"))
		assert.True(t, strings.HasPrefix(r.Header.Get("X-Request-ID"), "req_"))

		json.NewEncoder(w).Encode(map[string]any{
			"default": "echo",
			"kernelspecs": map[string]any{
				"echo": map[string]any{
					"name":         "echo",
					"display_name": "Echo",
					"language":     "bash",
					"argv":         []string{"echo"},
				},
			},
		})
	}))

	specs, err := client.ListSpecs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "echo", specs.Default)
	require.Contains(t, specs.Specs, "echo")
	assert.Equal(t, "Echo", specs.Specs["echo"].DisplayName)
}

func TestListSpecsPromotesFallbackDefault(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"default": "missing",
			"kernelspecs": map[string]any{
				"python3": map[string]any{"name": "python3"},
			},
		})
	}))

	specs, err := client.ListSpecs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "python3", specs.Default, "advertised default absent from specs must be replaced")
}

func TestListRunning(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/kernels", r.URL.Path)
		json.NewEncoder(w).Encode([]types.KernelModel{
			{ID: "k1", Name: "python3", Connections: 2, LastActivity: now, ExecutionState: types.ExecutionIdle},
		})
	}))

	models, err := client.ListRunning(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "k1", models[0].ID)
	assert.Equal(t, types.ExecutionIdle, models[0].ExecutionState)
}

func TestStartKernel(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var opts types.StartOptions
		require.NoError(t, json.NewDecoder(r.Body).Decode(&opts))
		assert.Equal(t, "python3", opts.Name)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(types.KernelModel{ID: "new-id", Name: opts.Name, ExecutionState: types.ExecutionStarting})
	}))

	model, err := client.StartKernel(context.Background(), types.StartOptions{Name: "python3"})
	require.NoError(t, err)
	assert.Equal(t, "new-id", model.ID)
	assert.Equal(t, types.ExecutionStarting, model.ExecutionState)
}

func TestStartKernelRejectsMissingID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	}))

	_, err := client.StartKernel(context.Background(), types.StartOptions{})
	assert.Error(t, err)
}

func TestShutdownKernel(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/kernels/k1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.NoError(t, client.ShutdownKernel(context.Background(), "k1"))
}

func TestShutdownKernelNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	err := client.ShutdownKernel(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, IsNotFound(err), "404 must map to IsNotFound")
}

func TestGetKernelNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.GetKernel(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestTransportErrorCarriesOpAndStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.ListRunning(context.Background())
	require.Error(t, err)

	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusForbidden, te.StatusCode)
	assert.Contains(t, te.Error(), "list running")
	assert.False(t, IsNotFound(err))
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New(config.ServiceConfig{BaseURL: "ftp://nope"}, nil)
	assert.Error(t, err)
}
