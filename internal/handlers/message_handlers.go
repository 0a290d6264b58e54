package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tounfite-souk/app/internal/database"
	"github.com/tounfite-souk/app/internal/models"
)

// sendFlash maps a SendMessage failure to the notice shown to the sender.
// ok is false for unexpected errors.
func sendFlash(err error) (msg string, ok bool) {
	switch {
	case errors.Is(err, database.ErrEmpty):
		return "Message cannot be empty", true
	case errors.Is(err, database.ErrInvalidInput):
		return "You cannot send a message to yourself", true
	case errors.Is(err, database.ErrNotFound):
		return "User not found", true
	}
	return "", false
}

// MessagesPage shows the caller's conversation partners and, with the
// with_id query parameter, the thread with one of them. A POST sends a
// message into that thread.
func MessagesPage(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)

		var other *models.User
		if withID, err := strconv.ParseInt(r.URL.Query().Get("with_id"), 10, 64); err == nil {
			other, err = database.GetUserByID(r.Context(), env.DB, withID)
			if err != nil && !errors.Is(err, database.ErrNotFound) {
				internalError(w, r, env, "load conversation partner", err)
				return
			}
		}

		if r.Method == http.MethodPost {
			if other == nil {
				redirectWithFlash(w, r, env, "/messages", "Select a conversation first")
				return
			}
			threadURL := fmt.Sprintf("/messages?with_id=%d", other.ID)
			_, err := database.SendMessage(r.Context(), env.DB, user, other.ID, r.FormValue("content"))
			if err != nil {
				msg, ok := sendFlash(err)
				if !ok {
					internalError(w, r, env, "send message", err)
					return
				}
				redirectWithFlash(w, r, env, threadURL, msg)
				return
			}
			http.Redirect(w, r, threadURL, http.StatusSeeOther)
			return
		}

		partners, err := database.GetConversationPartners(r.Context(), env.DB, user.ID)
		if err != nil {
			internalError(w, r, env, "list conversation partners", err)
			return
		}
		data := map[string]interface{}{
			"Partners": partners,
			"Other":    other,
		}
		if other != nil {
			thread, err := database.GetThread(r.Context(), env.DB, user, user.ID, other.ID)
			if err != nil {
				internalError(w, r, env, "load thread", err)
				return
			}
			data["Thread"] = thread
		}
		RenderTemplate(w, r, env, "messages/messages.html", data)
	}
}

// ContactSeller renders the contact form for seller_id and, on POST, sends
// the message.
func ContactSeller(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := strconv.ParseInt(r.PathValue("seller_id"), 10, 64)
		if err != nil {
			RenderErrorPage(w, r, env, http.StatusNotFound, "Not Found", "Unknown seller.")
			return
		}
		seller, err := database.GetUserByID(r.Context(), env.DB, sellerID)
		if errors.Is(err, database.ErrNotFound) {
			RenderErrorPage(w, r, env, http.StatusNotFound, "Not Found", "Unknown seller.")
			return
		}
		if err != nil {
			internalError(w, r, env, "load seller", err)
			return
		}

		if r.Method != http.MethodPost {
			RenderTemplate(w, r, env, "messages/contact.html", map[string]interface{}{"Seller": seller})
			return
		}

		contactURL := fmt.Sprintf("/contact/%d", seller.ID)
		_, err = database.SendMessage(r.Context(), env.DB, CurrentUser(r), seller.ID, r.FormValue("content"))
		if err != nil {
			msg, ok := sendFlash(err)
			if !ok {
				internalError(w, r, env, "contact seller", err)
				return
			}
			redirectWithFlash(w, r, env, contactURL, msg)
			return
		}
		redirectWithFlash(w, r, env, fmt.Sprintf("/messages?with_id=%d", seller.ID), "Message sent")
	}
}
