// Package respond writes JSON and small HTML error pages.
//
// Browser-facing rejections are negotiated: a client that accepts
// application/json, or any path under /api/, gets `{"error": "..."}`;
// everyone else gets a minimal HTML page.  Agent endpoints always speak
// JSON.
package respond

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// RetryAfterSeconds is sent with every 503.
const RetryAfterSeconds = 30

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("respond: encode failed", zap.Error(err))
	}
}

// ErrorBody is the wire shape of every JSON error.
type ErrorBody struct {
	Error  string              `json:"error"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// JSONError writes `{"error": msg}`.
func JSONError(w http.ResponseWriter, status int, msg string) {
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}
	JSON(w, status, ErrorBody{Error: msg})
}

// WantsJSON reports whether r should get a JSON error.
func WantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

var page = template.Must(template.New("error").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Message}}<p>{{.Message}}</p>{{end}}
</body>
</html>
`))

// Error writes a negotiated error for status.  msg may be empty, in which
// case the status text is used.
func Error(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	if WantsJSON(r) {
		JSONError(w, status, msg)
		return
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	data := struct{ Title, Message string }{Title: http.StatusText(status)}
	if msg != data.Title {
		data.Message = msg
	}
	if err := page.Execute(w, data); err != nil {
		zap.L().Warn("respond: render failed", zap.Error(err))
	}
}
