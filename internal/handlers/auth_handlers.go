package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/tounfite-souk/app/internal/database"
	"github.com/tounfite-souk/app/internal/mailer"
	"github.com/tounfite-souk/app/internal/models"
	"github.com/tounfite-souk/app/internal/ratelimit"
	"github.com/tounfite-souk/app/internal/tokens"
	"go.uber.org/zap"
)

// RegisterPage renders the user registration page.
func RegisterPage(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RenderTemplate(w, r, env, "auth/register.html", nil)
	}
}

// Register creates the account, mails a verification link and logs the new
// user in.
func Register(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			RenderErrorPage(w, r, env, http.StatusBadRequest, "Bad Request", "Error parsing form.")
			return
		}

		user, err := database.CreateUser(r.Context(), env.DB, database.Registration{
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
			Role:     r.FormValue("role"),
			Name:     r.FormValue("name"),
			Phone:    r.FormValue("phone"),
			City:     r.FormValue("city"),
		})
		switch {
		case errors.Is(err, database.ErrInvalidInput):
			redirectWithFlash(w, r, env, "/register", "Email and password are required")
			return
		case errors.Is(err, database.ErrEmailTaken):
			redirectWithFlash(w, r, env, "/register", "Email already registered.")
			return
		case err != nil:
			internalError(w, r, env, "register", err)
			return
		}

		sendVerificationEmail(r.Context(), env, user)

		if err := logIn(r, env, user); err != nil {
			internalError(w, r, env, "register: start session", err)
			return
		}
		redirectWithFlash(w, r, env, "/", "Registered. A verification email was sent (or printed to console).")
	}
}

// sendVerificationEmail never fails the caller; problems are logged.
func sendVerificationEmail(ctx context.Context, env *Env, user *models.User) {
	token, err := env.Tokens.Issue(user.Email)
	if err != nil {
		env.Logger.Error("issue verification token", zap.String("email", user.Email), zap.Error(err))
		return
	}
	link := env.BaseURL + "/verify/" + token
	body := mailer.VerificationBody(user.Name, user.Email, link, token)
	if err := env.Mailer.Send(ctx, user.Email, "Verify your email", body); err != nil {
		env.Logger.Warn("send verification email", zap.String("email", user.Email), zap.Error(err))
	}
}

// VerifyEmail redeems the token in the link and marks its user verified.
func VerifyEmail(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := env.Tokens.Redeem(r.PathValue("token"), tokens.VerifyMaxAge)
		if err != nil {
			redirectWithFlash(w, r, env, "/", "Invalid or expired token")
			return
		}

		_, err = database.MarkVerified(r.Context(), env.DB, email)
		switch {
		case errors.Is(err, database.ErrNotFound):
			redirectWithFlash(w, r, env, "/", "User not found")
		case err != nil:
			internalError(w, r, env, "verify email", err)
		default:
			redirectWithFlash(w, r, env, "/", "Email verified, thank you!")
		}
	}
}

// LoginPage renders the user login page.
func LoginPage(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RenderTemplate(w, r, env, "auth/login.html", nil)
	}
}

// Login handles the user login form submission.
func Login(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !env.LoginLimiter.Allow(ratelimit.ClientIP(r)) {
			RenderErrorPage(w, r, env, http.StatusTooManyRequests, "Too Many Requests",
				"Too many login attempts. Please wait a minute and try again.")
			return
		}
		if err := r.ParseForm(); err != nil {
			RenderErrorPage(w, r, env, http.StatusBadRequest, "Bad Request", "Error parsing form.")
			return
		}

		user, err := database.Authenticate(r.Context(), env.DB, r.FormValue("email"), r.FormValue("password"))
		if errors.Is(err, database.ErrInvalidCredentials) {
			redirectWithFlash(w, r, env, "/login", "Invalid credentials")
			return
		}
		if err != nil {
			internalError(w, r, env, "login", err)
			return
		}

		if err := logIn(r, env, user); err != nil {
			internalError(w, r, env, "login: start session", err)
			return
		}
		redirectWithFlash(w, r, env, "/", "Logged in")
	}
}

// logIn binds the request's session to user under a new session id.
func logIn(r *http.Request, env *Env, user *models.User) error {
	sess := FromContext(r.Context()).Session
	if err := env.Sessions.Rotate(r.Context(), sess); err != nil {
		return err
	}
	sess.Data.UserID = user.ID
	return nil
}

// Logout handles user logout.
func Logout(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := FromContext(r.Context()).Session
		if err := env.Sessions.Destroy(r.Context(), sess); err != nil {
			env.Logger.Warn("destroy session", zap.Error(err))
		}
		redirectWithFlash(w, r, env, "/", "Logged out")
	}
}

// AuthMiddleware redirects anonymous callers to the login page.
func AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r) == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	}
}

// SellerOnly renders 403 for authenticated callers without the seller role.
// Wrap it in AuthMiddleware.
func SellerOnly(env *Env, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !CurrentUser(r).IsSeller() {
			RenderErrorPage(w, r, env, http.StatusForbidden, "Forbidden", "Only sellers can do this.")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// ProfilePage renders the account page of the current user.
func ProfilePage(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RenderTemplate(w, r, env, "account/profile.html", nil)
	}
}

// UpdateProfile overwrites name, phone and city with the submitted values.
func UpdateProfile(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			RenderErrorPage(w, r, env, http.StatusBadRequest, "Bad Request", "Error parsing form.")
			return
		}
		err := database.UpdateProfile(r.Context(), env.DB, CurrentUser(r), database.ProfileUpdate{
			Name:  r.FormValue("name"),
			Phone: r.FormValue("phone"),
			City:  r.FormValue("city"),
		})
		if err != nil {
			internalError(w, r, env, "update profile", err)
			return
		}
		redirectWithFlash(w, r, env, "/profile", "Profile updated")
	}
}
