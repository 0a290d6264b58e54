package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/tounfite-souk/app/internal/database"
	"github.com/tounfite-souk/app/internal/i18n"
	"github.com/tounfite-souk/app/internal/models"
	"github.com/tounfite-souk/app/internal/session"
	"go.uber.org/zap"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// RequestContext is what a handler knows about the caller. It is built once
// per request by WithRequestContext.
type RequestContext struct {
	User    *models.User
	Lang    string
	Theme   string
	Session *session.Session
}

type requestContextKey struct{}

// FromContext returns the request context attached by WithRequestContext,
// or an anonymous one.
func FromContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestContextKey{}).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{Lang: i18n.English, Theme: ThemeLight, Session: &session.Session{}}
}

// CurrentUser is the authenticated user of r, or nil.
func CurrentUser(r *http.Request) *models.User {
	return FromContext(r.Context()).User
}

// WithRequestContext loads the session, resolves the user and picks the UI
// language and theme before calling next.
func WithRequestContext(env *Env, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := env.Sessions.Load(r)
		if err != nil {
			env.Logger.Error("load session", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		rc := &RequestContext{Session: sess}
		if sess.Data.UserID != 0 {
			user, err := database.GetUserByID(r.Context(), env.DB, sess.Data.UserID)
			switch {
			case err == nil:
				rc.User = user
			case errors.Is(err, database.ErrNotFound):
				// The account behind this session is gone.
				sess.Data.UserID = 0
			default:
				env.Logger.Error("load session user", zap.Int64("user_id", sess.Data.UserID), zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}

		rc.Lang = sess.Data.Lang
		if !i18n.Supported(rc.Lang) {
			rc.Lang = i18n.Negotiate(r.Header.Get("Accept-Language"), env.DefaultLang)
		}
		rc.Theme = ThemeLight
		if sess.Data.Theme == ThemeDark {
			rc.Theme = ThemeDark
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestContextKey{}, rc)))
	})
}
