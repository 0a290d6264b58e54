package handlers

import (
	"time"

	"github.com/tounfite-souk/app/internal/mailer"
	"github.com/tounfite-souk/app/internal/ratelimit"
	"github.com/tounfite-souk/app/internal/session"
	"github.com/tounfite-souk/app/internal/tokens"
	"github.com/tounfite-souk/app/internal/uploads"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Env carries the dependencies shared by all handlers.
type Env struct {
	DB           *gorm.DB
	Sessions     *session.Manager
	Uploads      uploads.Storage
	Mailer       mailer.Mailer
	Tokens       *tokens.Signer
	LoginLimiter *ratelimit.Limiter
	Logger       *zap.Logger

	// BaseURL prefixes links sent by mail, without a trailing slash.
	BaseURL     string
	DefaultLang string
	Now         func() time.Time
}

func (env *Env) now() time.Time {
	if env.Now != nil {
		return env.Now()
	}
	return time.Now()
}
