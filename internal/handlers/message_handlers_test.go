package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tounfite-souk/app/internal/database"
	"github.com/tounfite-souk/app/internal/models"
)

func TestContactSeller(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	buyer, buyerUser := ts.registerUser(t, "buyer@example.com", models.RoleBuyer)
	seller, sellerUser := ts.registerUser(t, "seller@example.com", models.RoleSeller)
	contactPath := fmt.Sprintf("/contact/%d", sellerUser.ID)

	t.Run("GET contact form", func(t *testing.T) {
		resp, body := ts.get(t, buyer, contactPath)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "seller@example.com")
	})

	t.Run("Empty message", func(t *testing.T) {
		resp := ts.postForm(t, buyer, contactPath, url.Values{"content": {"   "}})
		body := ts.follow(t, buyer, resp, contactPath)
		assert.Contains(t, body, "Message cannot be empty")
	})

	t.Run("Send message", func(t *testing.T) {
		resp := ts.postForm(t, buyer, contactPath, url.Values{"content": {"Is the chair still available?"}})
		body := ts.follow(t, buyer, resp, fmt.Sprintf("/messages?with_id=%d", sellerUser.ID))
		assert.Contains(t, body, "Message sent")
		assert.Contains(t, body, "Is the chair still available?")

		thread, err := database.GetThread(ctx, ts.db, sellerUser, sellerUser.ID, buyerUser.ID)
		require.NoError(t, err)
		require.Len(t, thread, 1)
		assert.Equal(t, buyerUser.ID, thread[0].SenderID)
	})

	t.Run("Contact self", func(t *testing.T) {
		resp := ts.postForm(t, seller, contactPath, url.Values{"content": {"hello me"}})
		body := ts.follow(t, seller, resp, contactPath)
		assert.Contains(t, body, "You cannot send a message to yourself")
	})

	t.Run("Unknown seller", func(t *testing.T) {
		resp, _ := ts.get(t, buyer, "/contact/99999")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp, _ = ts.get(t, buyer, "/contact/abc")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestMessagesPage(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	a, userA := ts.registerUser(t, "a@example.com", models.RoleBuyer)
	b, userB := ts.registerUser(t, "b@example.com", models.RoleSeller)
	_, userC := ts.registerUser(t, "c@example.com", models.RoleSeller)

	_, err := database.SendMessage(ctx, ts.db, userA, userB.ID, "A to B")
	require.NoError(t, err)
	_, err = database.SendMessage(ctx, ts.db, userB, userA.ID, "B to A")
	require.NoError(t, err)
	_, err = database.SendMessage(ctx, ts.db, userA, userC.ID, "A to C")
	require.NoError(t, err)

	t.Run("Partners without thread", func(t *testing.T) {
		resp, body := ts.get(t, a, "/messages")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, fmt.Sprintf(`href="/messages?with_id=%d"`, userB.ID))
		assert.Contains(t, body, fmt.Sprintf(`href="/messages?with_id=%d"`, userC.ID))
		assert.Contains(t, body, "Select a conversation.")
	})

	t.Run("Thread from both sides", func(t *testing.T) {
		_, body := ts.get(t, a, fmt.Sprintf("/messages?with_id=%d", userB.ID))
		assert.Contains(t, body, "A to B")
		assert.Contains(t, body, "B to A")
		assert.NotContains(t, body, "A to C")

		_, body = ts.get(t, b, fmt.Sprintf("/messages?with_id=%d", userA.ID))
		assert.Contains(t, body, "A to B")
		assert.NotContains(t, body, fmt.Sprintf(`href="/messages?with_id=%d"`, userC.ID))
	})

	t.Run("Reply into thread", func(t *testing.T) {
		threadPath := fmt.Sprintf("/messages?with_id=%d", userA.ID)
		resp := ts.postForm(t, b, threadPath, url.Values{"content": {"line one\nline two"}})
		body := ts.follow(t, b, resp, threadPath)
		assert.Contains(t, body, "line one<br>line two")
	})

	t.Run("Empty reply", func(t *testing.T) {
		threadPath := fmt.Sprintf("/messages?with_id=%d", userB.ID)
		resp := ts.postForm(t, a, threadPath, url.Values{"content": {""}})
		body := ts.follow(t, a, resp, threadPath)
		assert.Contains(t, body, "Message cannot be empty")
	})

	t.Run("Unknown partner", func(t *testing.T) {
		resp, body := ts.get(t, a, "/messages?with_id=99999")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Select a conversation.")

		resp = ts.postForm(t, a, "/messages?with_id=99999", url.Values{"content": {"hi"}})
		body = ts.follow(t, a, resp, "/messages")
		assert.Contains(t, body, "Select a conversation first")
	})

	t.Run("Message content is escaped", func(t *testing.T) {
		_, err := database.SendMessage(ctx, ts.db, userC, userA.ID, "<script>alert(1)</script>")
		require.NoError(t, err)
		_, body := ts.get(t, a, fmt.Sprintf("/messages?with_id=%d", userC.ID))
		assert.NotContains(t, body, "<script>alert(1)</script>")
		assert.Contains(t, body, "&lt;script&gt;")
	})
}
