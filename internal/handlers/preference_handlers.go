package handlers

import (
	"net/http"

	"github.com/tounfite-souk/app/internal/i18n"
)

// SetLang stores a supported UI language in the session and sends the
// browser back. Unsupported languages are ignored.
func SetLang(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		back := sameHostReferer(r, "/")
		lang := r.PathValue("lang")
		if !i18n.Supported(lang) {
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		FromContext(r.Context()).Session.Data.Lang = lang
		saveSession(w, r, env)
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
}

// ToggleTheme flips between the light and dark theme.
func ToggleTheme(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := FromContext(r.Context())
		next := ThemeDark
		if rc.Theme == ThemeDark {
			next = ThemeLight
		}
		rc.Session.Data.Theme = next
		saveSession(w, r, env)
		http.Redirect(w, r, sameHostReferer(r, "/"), http.StatusSeeOther)
	}
}
