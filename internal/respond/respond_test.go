package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_JSONForAPIPaths(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/things", nil)
	w := httptest.NewRecorder()
	Error(w, r, http.StatusNotFound, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Not Found", body.Error)
}

func TestError_HTMLForBrowsers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9")
	w := httptest.NewRecorder()
	Error(w, r, http.StatusForbidden, "Billing <overdue>")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<h1>Forbidden</h1>")
	assert.Contains(t, w.Body.String(), "Billing &lt;overdue&gt;")
}

func TestError_RetryAfterOn503(t *testing.T) {
	for _, accept := range []string{"application/json", "text/html"} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Accept", accept)
		w := httptest.NewRecorder()
		Error(w, r, http.StatusServiceUnavailable, "")
		assert.Equal(t, "30", w.Header().Get("Retry-After"), accept)
	}
}
