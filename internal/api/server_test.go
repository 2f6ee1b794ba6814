package api_test

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/dormo/internal/api"
	"github.com/mcoot/dormo/internal/errutil"
	"github.com/mcoot/dormo/internal/testutil"
)

func TestServer_ServesUntilContextEnds(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	url := "http://" + ln.Addr().String() + "/"

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := api.NewServer(handler, api.DefaultServerConfig(), testutil.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, ln) }()

	resp, err := http.Get(url)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	_, err = http.Get(url)
	assert.Error(t, err, "listener closed after shutdown")
}

func TestServer_RunFailsWhenAddressTaken(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	cfg := api.DefaultServerConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port, err = strconv.Atoi(portOf(t, ln))
	require.NoError(t, err)

	server := api.NewServer(http.NotFoundHandler(), cfg, testutil.NopLogger())

	errutil.AssertErrorCode(t, server.Run(context.Background()), "LISTEN_FAILED")
}

func portOf(t *testing.T, ln net.Listener) string {
	t.Helper()
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return port
}
