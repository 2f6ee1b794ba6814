package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dormotest "github.com/mcoot/dormo/internal/testutil"
)

func TestResponseWriter_TracksFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := Wrap(rec)
	assert.Same(t, rw, Wrap(rw), "wrapping twice reuses the writer")
	assert.False(t, rw.Written())

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK)
	_, err := rw.Write([]byte("short and stout"))
	require.NoError(t, err)

	assert.True(t, rw.Written())
	assert.Equal(t, http.StatusTeapot, rw.Status())
	assert.Equal(t, 15, rw.Size())
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestResponseWriter_WriteImpliesOK(t *testing.T) {
	rw := Wrap(httptest.NewRecorder())

	_, err := rw.Write([]byte("x"))
	require.NoError(t, err)

	assert.True(t, rw.Written())
	assert.Equal(t, http.StatusOK, rw.Status())
}

func TestLogging(t *testing.T) {
	logger, logs := dormotest.CaptureLogger()
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/things", nil))

	out := logs.String()
	assert.Contains(t, out, `"msg":"http request"`)
	assert.Contains(t, out, `"method":"POST"`)
	assert.Contains(t, out, `"path":"/things"`)
	assert.Contains(t, out, `"status":201`)
	assert.Contains(t, out, `"size":5`)
}

func TestRecovery(t *testing.T) {
	logger, logs := dormotest.CaptureLogger()
	var got error
	h := Recovery(logger, func(w http.ResponseWriter, r *http.Request, err error) {
		got = err
		DefaultPanicHandler(w, r, err)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("kaboom"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Error(t, got)
	assert.Equal(t, "panic: kaboom", got.Error())
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestPanicError(t *testing.T) {
	sentinel := errors.New("sentinel")
	assert.ErrorIs(t, PanicError(sentinel), sentinel)
	assert.Equal(t, "panic: 42", PanicError(42).Error())
}

func TestTimeout_Disabled(t *testing.T) {
	var hasDeadline bool
	h := Timeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, hasDeadline)
}

func TestTimeout_ExpiresContext(t *testing.T) {
	var err error
	h := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		err = r.Context().Err()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	h := Instrument(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	expected := `
# HELP dormo_http_requests_total HTTP requests by method and status code
# TYPE dormo_http_requests_total counter
dormo_http_requests_total{method="GET",status="404"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "dormo_http_requests_total"))
}

func TestInstrument_NilMetrics(t *testing.T) {
	next := http.NotFoundHandler()
	h := Instrument(nil)(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
