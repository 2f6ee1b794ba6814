package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is an HTTP client for the API. It sends the session cookie and
// remembers the session the server sets or clears.
type Client struct {
	baseURL    string
	cookieName string
	session    string
	changed    bool
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, cookieName, session string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		cookieName: cookieName,
		session:    session,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Session returns the current session token and whether the server changed it
func (c *Client) Session() (string, bool) {
	return c.session, c.changed
}

// Reason is one entry of a registration failure
type Reason struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// APIError represents an error response from the API
type APIError struct {
	Status int
	// Message is set for plain message responses
	Message string `json:"message"`
	// Reasons is set for validation failures
	Reasons []Reason
	// Problem fields
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func (e *APIError) Error() string {
	switch {
	case len(e.Reasons) > 0:
		parts := make([]string, 0, len(e.Reasons))
		for _, r := range e.Reasons {
			parts = append(parts, fmt.Sprintf("%s (%s)", r.Description, r.Code))
		}
		return strings.Join(parts, "; ")
	case e.Message != "":
		return e.Message
	case e.Detail != "" && e.Code != "":
		return fmt.Sprintf("%s (%s)", e.Detail, e.Code)
	case e.Detail != "":
		return e.Detail
	case e.Title != "":
		return e.Title
	default:
		return fmt.Sprintf("HTTP %d", e.Status)
	}
}

// parseAPIError decodes any of the API's error bodies
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	trimmed := bytes.TrimSpace(body)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		_ = json.Unmarshal(trimmed, &apiErr.Reasons)
	case len(trimmed) > 0 && trimmed[0] == '{':
		_ = json.Unmarshal(trimmed, apiErr)
	default:
		apiErr.Message = string(trimmed)
	}
	return apiErr
}

// Do performs an HTTP request
func (c *Client) Do(method, path string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.session})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	for _, cookie := range resp.Cookies() {
		if cookie.Name != c.cookieName {
			continue
		}
		c.changed = true
		if cookie.MaxAge < 0 || cookie.Value == "" {
			c.session = ""
		} else {
			c.session = cookie.Value
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Check for error responses
	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	// Parse successful response
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// Get performs a GET request
func (c *Client) Get(path string, result any) error {
	return c.Do(http.MethodGet, path, nil, result)
}

// Post performs a POST request
func (c *Client) Post(path string, body, result any) error {
	return c.Do(http.MethodPost, path, body, result)
}
