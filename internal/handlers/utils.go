package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tounfite-souk/app/internal/i18n"
	"go.uber.org/zap"
)

// Template helper functions
var funcMap = template.FuncMap{
	"T":              i18n.Translate,
	"FormatDateTime": FormatDateTime,
	"FormatPrice":    FormatPrice,
	"Nl2br":          Nl2br,
	"Truncate":       Truncate,
}

// FormatDateTime formats a time.Time object into a more readable string.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("January 2, 2006 at 3:04 PM")
}

// FormatPrice renders a price with two decimals.
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// Nl2br escapes s and replaces newline characters with <br> tags.
func Nl2br(s string) template.HTML {
	return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br>"))
}

// Truncate shortens s to at most n characters.
func Truncate(n int, s string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// templates holds all parsed page templates keyed by their path relative to
// the template root, e.g. "auth/login.html".
var (
	templates     map[string]*template.Template
	templatesOnce sync.Once
	templatesErr  error
)

// LoadTemplates parses every page under fsys together with layout.html and
// all partials (files starting with "_"). Only the first call does any work.
func LoadTemplates(fsys fs.FS) error {
	templatesOnce.Do(func() {
		templates, templatesErr = parseTemplates(fsys)
	})
	return templatesErr
}

func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	const layoutFile = "layout.html"
	if _, err := fs.Stat(fsys, layoutFile); err != nil {
		return nil, fmt.Errorf("layout.html not found: %w", err)
	}

	var partials, pages []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" || p == layoutFile {
			return nil
		}
		if strings.HasPrefix(path.Base(p), "_") {
			partials = append(partials, p)
		} else {
			pages = append(pages, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking templates: %w", err)
	}

	set := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		// The page goes last so its blocks override the layout defaults.
		files := append([]string{layoutFile}, partials...)
		files = append(files, page)
		tmpl, err := template.New(page).Funcs(funcMap).ParseFS(fsys, files...)
		if err != nil {
			return nil, fmt.Errorf("error parsing page template %s: %w", page, err)
		}
		set[page] = tmpl
	}
	return set, nil
}

// RenderTemplate renders the page name inside the layout with status 200.
func RenderTemplate(w http.ResponseWriter, r *http.Request, env *Env, name string, data map[string]interface{}) {
	renderPage(w, r, env, http.StatusOK, name, data)
}

// RenderErrorPage renders a standardized error page using the error.html template.
func RenderErrorPage(w http.ResponseWriter, r *http.Request, env *Env, statusCode int, title, message string) {
	renderPage(w, r, env, statusCode, "error.html", map[string]interface{}{
		"Title":      fmt.Sprintf("Error %d - %s", statusCode, title),
		"StatusCode": statusCode,
		"StatusText": http.StatusText(statusCode),
		"ErrorTitle": title,
		"Message":    message,
	})
}

// renderPage adds the layout fields, consumes pending flashes and writes
// the page only once it rendered completely.
func renderPage(w http.ResponseWriter, r *http.Request, env *Env, status int, name string, data map[string]interface{}) {
	tmpl, ok := templates[name]
	if !ok {
		env.Logger.Error("template not found", zap.String("template", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rc := FromContext(r.Context())
	if data == nil {
		data = map[string]interface{}{}
	}
	data["User"] = rc.User
	data["Lang"] = rc.Lang
	data["Dir"] = i18n.Dir(rc.Lang)
	data["Theme"] = rc.Theme
	data["CurrentYear"] = env.now().Year()

	flashes := rc.Session.PopFlashes()
	data["Flashes"] = flashes

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		env.Logger.Error("execute template", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(flashes) > 0 {
		saveSession(w, r, env)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// saveSession persists the request's session and sets its cookie. Failures
// are logged; the response still goes out.
func saveSession(w http.ResponseWriter, r *http.Request, env *Env) {
	rc := FromContext(r.Context())
	if err := env.Sessions.Save(r.Context(), w, rc.Session); err != nil {
		env.Logger.Error("save session", zap.Error(err))
	}
}

// redirectWithFlash queues msg for the next page and redirects to target.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, env *Env, target, msg string) {
	if msg != "" {
		FromContext(r.Context()).Session.AddFlash(msg)
	}
	saveSession(w, r, env)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// internalError logs err and renders a 500 page.
func internalError(w http.ResponseWriter, r *http.Request, env *Env, where string, err error) {
	env.Logger.Error(where, zap.String("path", r.URL.Path), zap.Error(err))
	RenderErrorPage(w, r, env, http.StatusInternalServerError, "Internal Server Error", "Something went wrong. Please try again.")
}

// sameHostReferer returns the path of the Referer header when it points at
// this host, else fallback.
func sameHostReferer(r *http.Request, fallback string) string {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host != r.Host {
		return fallback
	}
	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}
