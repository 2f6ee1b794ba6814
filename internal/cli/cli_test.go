package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/dormo/internal/api"
	"github.com/mcoot/dormo/internal/factory"
	"github.com/mcoot/dormo/internal/services/session"
	"github.com/mcoot/dormo/internal/testutil"
)

type cliHarness struct {
	t          *testing.T
	server     *httptest.Server
	cookieFile string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		AuthService:    app.AuthService,
		Issuer:         app.Issuer,
		Cookies:        session.CookieConfig{Name: session.DefaultCookieName},
		Storage:        app.Storage,
		RequestTimeout: 5 * time.Second,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &cliHarness{
		t:          t,
		server:     server,
		cookieFile: filepath.Join(t.TempDir(), "session"),
	}
}

// run executes dormoctl with args and stdin, returning stdout and the error
func (h *cliHarness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--server", h.server.URL, "--cookie-file", h.cookieFile}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_Health(t *testing.T) {
	h := newCLIHarness(t)

	out, err := h.run("", "health")
	require.NoError(t, err)
	assert.Equal(t, "Status: ok\n", out)
}

func TestCLI_SessionRoundTrip(t *testing.T) {
	h := newCLIHarness(t)

	out, err := h.run("", "register", "--email", "a@x.com", "--password", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Registration successful\n", out)
	assert.FileExists(t, h.cookieFile)

	out, err = h.run("", "status")
	require.NoError(t, err)
	assert.Equal(t, "Signed in as a@x.com\n", out)

	out, err = h.run("", "logout")
	require.NoError(t, err)
	assert.Equal(t, "Logout successful\n", out)
	assert.NoFileExists(t, h.cookieFile)

	out, err = h.run("", "status")
	require.NoError(t, err)
	assert.Equal(t, "Not signed in\n", out)
}

func TestCLI_LoginReadsPasswordFromStdin(t *testing.T) {
	h := newCLIHarness(t)

	_, err := h.run("", "register", "--email", "a@x.com", "--password", "secret1")
	require.NoError(t, err)
	require.NoError(t, os.Remove(h.cookieFile))

	out, err := h.run("secret1\n", "login", "--email", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Login successful\n", out)
	assert.FileExists(t, h.cookieFile)
}

func TestCLI_LoginFailure(t *testing.T) {
	h := newCLIHarness(t)

	_, err := h.run("", "login", "--email", "a@x.com", "--password", "nope123")
	require.Error(t, err)
	assert.Equal(t, "Invalid login attempt", err.Error())
	assert.NoFileExists(t, h.cookieFile)
}

func TestCLI_RegisterValidation(t *testing.T) {
	h := newCLIHarness(t)

	_, err := h.run("", "register", "--email", "a@x.com", "--password", "abc")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Len(t, apiErr.Reasons, 2)
	assert.Equal(t, "PasswordTooShort", apiErr.Reasons[0].Code)
}

func TestCLI_JSONOutput(t *testing.T) {
	h := newCLIHarness(t)

	out, err := h.run("", "status", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"isAuthenticated":false}`, out)
}

func TestParseAPIError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message", `{"message":"Invalid login attempt"}`, "Invalid login attempt"},
		{"problem", `{"type":"x","title":"Too Many Requests","status":429,"detail":"slow down","code":"RATE_LIMITED"}`, "slow down (RATE_LIMITED)"},
		{"reasons", `[{"code":"InvalidEmail","description":"Email 'x' is invalid."}]`, "Email 'x' is invalid. (InvalidEmail)"},
		{"plain text", "404 page not found\n", "404 page not found"},
		{"empty", "", "HTTP 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAPIError(http.StatusInternalServerError, []byte(tt.body)).Error())
		})
	}
}

func TestReadSecret(t *testing.T) {
	t.Run("pipe", func(t *testing.T) {
		var prompt bytes.Buffer
		pw, err := readSecret("Password: ", strings.NewReader("hunter2\r\n"), &prompt)
		require.NoError(t, err)
		assert.Equal(t, "hunter2", pw)
		assert.Empty(t, prompt.String())
	})

	t.Run("no trailing newline", func(t *testing.T) {
		pw, err := readSecret("Password: ", strings.NewReader("hunter2"), &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, "hunter2", pw)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := readSecret("Password: ", strings.NewReader(""), &bytes.Buffer{})
		assert.Error(t, err)
	})

	t.Run("terminal", func(t *testing.T) {
		origRead, origIsTerm := readPassword, isTerminal
		t.Cleanup(func() { readPassword, isTerminal = origRead, origIsTerm })
		isTerminal = func(int) bool { return true }
		readPassword = func(int) ([]byte, error) { return []byte("from-tty"), nil }

		var prompt bytes.Buffer
		pw, err := readSecret("Password: ", os.Stdin, &prompt)
		require.NoError(t, err)
		assert.Equal(t, "from-tty", pw)
		assert.Equal(t, "Password: \n", prompt.String())
	})
}
