// components/home/home.go
//
// Home component: the tenant landing page.
//
// It is the smallest handler that exercises a tenant binding end to end:
// it reads the `setting` table over the request's routed connection and
// renders with the tenant's display preferences.  It never opens a
// connection itself.
package home

import (
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/respond"
	"github.com/yanizio/tenancy/internal/tenant"
	"github.com/yanizio/tenancy/internal/tenant/meta"
)

// Component renders "/" for tenant hosts.
type Component struct {
	Log *zap.SugaredLogger
}

func (c *Component) Name() string { return "home" }

// Routes builds the router mounted at "/" on tenant hosts.
func (c *Component) Routes() chi.Router {
	if c.Log == nil {
		c.Log = zap.NewNop().Sugar()
	}
	r := chi.NewRouter()
	r.Get("/", c.handleHome)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, http.StatusNotFound, "")
	})
	return r
}

var page = template.Must(template.New("home").Parse(`<!doctype html>
<html lang="{{.Locale}}">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Tagline}}<p>{{.Tagline}}</p>{{end}}
<p><small>{{.Today}}</small></p>
</body>
</html>
`))

func (c *Component) handleHome(w http.ResponseWriter, r *http.Request) {
	rt := tenant.FromContext(r.Context())
	if rt == nil || rt.Conn == nil {
		respond.Error(w, r, http.StatusNotFound, "")
		return
	}

	settings, err := meta.Settings(r.Context(), rt.Conn)
	if err != nil {
		c.Log.Errorw("tenant settings", "tenant_id", rt.Tenant.ID, "err", err)
		respond.Error(w, r, http.StatusInternalServerError, "")
		return
	}

	title := settings["site_name"]
	if title == "" {
		title = rt.Prefs.Name
	}
	data := struct {
		Locale, Title, Tagline, Today string
	}{
		Locale:  rt.Prefs.Locale,
		Title:   title,
		Tagline: settings["tagline"],
		Today:   rt.Prefs.FormatDate(time.Now()),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, data); err != nil {
		c.Log.Warnw("home render", "err", err)
	}
}
