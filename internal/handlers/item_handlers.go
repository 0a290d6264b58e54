package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/tounfite-souk/app/internal/database"
	"github.com/tounfite-souk/app/internal/uploads"
	"go.uber.org/zap"
)

// maxUploadSize bounds the add-item request body.
const maxUploadSize = 16 << 20

// ItemsListPage lists all items, filtered by the q and city query parameters.
func ItemsListPage(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		city := strings.TrimSpace(r.URL.Query().Get("city"))

		items, err := database.ListItems(r.Context(), env.DB, database.ItemFilter{Text: q, City: city})
		if err != nil {
			internalError(w, r, env, "list items", err)
			return
		}
		RenderTemplate(w, r, env, "items/items_list.html", map[string]interface{}{
			"Items": items,
			"Query": q,
			"City":  city,
		})
	}
}

// MyItemsPage lists the current seller's own items.
func MyItemsPage(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		items, err := database.ListItemsBySeller(r.Context(), env.DB, user, user.ID)
		if errors.Is(err, database.ErrForbidden) {
			RenderErrorPage(w, r, env, http.StatusForbidden, "Forbidden", "Only sellers have items.")
			return
		}
		if err != nil {
			internalError(w, r, env, "list seller items", err)
			return
		}
		RenderTemplate(w, r, env, "items/items_list.html", map[string]interface{}{
			"Items":   items,
			"MyItems": true,
		})
	}
}

// AddItemPage renders the form for a new listing.
func AddItemPage(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RenderTemplate(w, r, env, "items/new_item.html", nil)
	}
}

// AddItem handles the new listing form, including the optional image.
// Images with a disallowed extension are dropped without an error.
func AddItem(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		err := r.ParseMultipartForm(maxUploadSize)
		if err != nil && !errors.Is(err, http.ErrNotMultipart) {
			RenderErrorPage(w, r, env, http.StatusBadRequest, "Bad Request", "Error parsing form.")
			return
		}

		if strings.TrimSpace(r.FormValue("title")) == "" {
			redirectWithFlash(w, r, env, "/add_item", "Title is required")
			return
		}

		seller := CurrentUser(r)
		var imageName string
		if f, fh, err := r.FormFile("image"); err == nil {
			f.Close()
			imageName, err = uploads.SaveImage(r.Context(), env.Uploads, seller.ID, fh, env.now())
			if err != nil {
				internalError(w, r, env, "save item image", err)
				return
			}
		}

		_, err = database.CreateItem(r.Context(), env.DB, seller, database.ItemInput{
			Title:         r.FormValue("title"),
			Price:         database.ParsePrice(r.FormValue("price")),
			Description:   r.FormValue("description"),
			City:          r.FormValue("city"),
			ImageFilename: imageName,
		})
		if err != nil && imageName != "" {
			if derr := env.Uploads.Delete(r.Context(), imageName); derr != nil {
				env.Logger.Warn("failed to discard item image", zap.String("name", imageName), zap.Error(derr))
			}
		}
		switch {
		case errors.Is(err, database.ErrForbidden):
			RenderErrorPage(w, r, env, http.StatusForbidden, "Forbidden", "Only sellers can add items.")
			return
		case errors.Is(err, database.ErrInvalidInput):
			redirectWithFlash(w, r, env, "/add_item", "Title is required")
			return
		case err != nil:
			internalError(w, r, env, "create item", err)
			return
		}
		redirectWithFlash(w, r, env, "/my_items", "Item added")
	}
}

// ServeUpload streams a stored item image.
func ServeUpload(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("filename")
		rc, err := env.Uploads.Open(r.Context(), name)
		if errors.Is(err, uploads.ErrNotFound) {
			RenderErrorPage(w, r, env, http.StatusNotFound, "Not Found", "No such image.")
			return
		}
		if err != nil {
			internalError(w, r, env, "open upload", err)
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Type", uploads.ContentType(name))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if _, err := io.Copy(w, rc); err != nil {
			env.Logger.Warn("stream upload", zap.String("name", name), zap.Error(err))
		}
	}
}
