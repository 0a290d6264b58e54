package handlers

import (
	"net/http"
	"strings"

	"github.com/tounfite-souk/app/web"
)

// byMethod dispatches on the request method and renders 405 for the rest.
func byMethod(env *Env, get, post http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case (r.Method == http.MethodGet || r.Method == http.MethodHead) && get != nil:
			get(w, r)
		case r.Method == http.MethodPost && post != nil:
			post(w, r)
		default:
			allowed := []string{}
			if get != nil {
				allowed = append(allowed, http.MethodGet, http.MethodHead)
			}
			if post != nil {
				allowed = append(allowed, http.MethodPost)
			}
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			RenderErrorPage(w, r, env, http.StatusMethodNotAllowed, "Method Not Allowed",
				"This method is not supported for "+r.URL.Path+".")
		}
	}
}

// NewRouter wires every route. LoadTemplates must have been called.
func NewRouter(env *Env) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			RenderErrorPage(w, r, env, http.StatusNotFound, "Page Not Found", "The page you are looking for does not exist.")
			return
		}
		byMethod(env, func(w http.ResponseWriter, r *http.Request) {
			RenderTemplate(w, r, env, "index.html", nil)
		}, nil)(w, r)
	})

	// Preferences
	mux.HandleFunc("/set_lang/{lang}", byMethod(env, SetLang(env), nil))
	mux.HandleFunc("/toggle_theme", byMethod(env, ToggleTheme(env), nil))

	// Authentication Routes
	mux.HandleFunc("/register", byMethod(env, RegisterPage(env), Register(env)))
	mux.HandleFunc("/verify/{token}", byMethod(env, VerifyEmail(env), nil))
	mux.HandleFunc("/login", byMethod(env, LoginPage(env), Login(env)))
	mux.HandleFunc("/logout", byMethod(env, nil, Logout(env)))
	mux.HandleFunc("/profile", byMethod(env,
		AuthMiddleware(ProfilePage(env)),
		AuthMiddleware(UpdateProfile(env))))

	// Item Routes
	mux.HandleFunc("/items", byMethod(env, ItemsListPage(env), nil))
	mux.HandleFunc("/my_items", byMethod(env, AuthMiddleware(SellerOnly(env, MyItemsPage(env))), nil))
	mux.HandleFunc("/add_item", byMethod(env,
		AuthMiddleware(SellerOnly(env, AddItemPage(env))),
		AuthMiddleware(SellerOnly(env, AddItem(env)))))
	mux.HandleFunc("/uploads/{filename}", byMethod(env, ServeUpload(env), nil))

	// Message Routes
	mux.HandleFunc("/messages", byMethod(env, AuthMiddleware(MessagesPage(env)), AuthMiddleware(MessagesPage(env))))
	mux.HandleFunc("/contact/{seller_id}", byMethod(env, AuthMiddleware(ContactSeller(env)), AuthMiddleware(ContactSeller(env))))

	return Recoverer(env.Logger, AccessLog(env.Logger, WithRequestContext(env, mux)))
}
