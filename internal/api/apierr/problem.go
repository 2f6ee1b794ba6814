package apierr

import (
	"encoding/json"
	"net/http"
)

// ContentTypeProblem is the media type of RFC 7807 problem documents
const ContentTypeProblem = "application/problem+json"

// Problem is an RFC 7807 problem details document. Code is an extension
// member carrying the machine-readable error code.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Code     string `json:"code,omitempty"`
}

// problemTypes maps statuses to the RFC 9110 section describing them
var problemTypes = map[int]string{
	http.StatusBadRequest:          "https://tools.ietf.org/html/rfc9110#section-15.5.1",
	http.StatusUnauthorized:        "https://tools.ietf.org/html/rfc9110#section-15.5.2",
	http.StatusTooManyRequests:     "https://tools.ietf.org/html/rfc6585#section-4",
	http.StatusInternalServerError: "https://tools.ietf.org/html/rfc9110#section-15.6.1",
	http.StatusServiceUnavailable:  "https://tools.ietf.org/html/rfc9110#section-15.6.4",
}

// NewProblem builds a problem for status with the standard type and title
func NewProblem(status int, code, detail string) Problem {
	typ, ok := problemTypes[status]
	if !ok {
		typ = "about:blank"
	}
	title := http.StatusText(status)
	if status == http.StatusInternalServerError {
		title = "An error occurred while processing your request."
	}
	return Problem{
		Type:   typ,
		Title:  title,
		Status: status,
		Detail: detail,
		Code:   code,
	}
}

// WriteProblem writes p as an application/problem+json response
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", ContentTypeProblem)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
