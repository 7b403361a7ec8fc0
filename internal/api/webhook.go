package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/anyotin/queueline/internal/chatintent"
)

// lineWebhookEvent is the narrow slice of the LINE Messaging API payload
// this handler needs: one or more text-message events.
type lineWebhookEvent struct {
	Events []struct {
		ReplyToken string `json:"replyToken"`
		Source     struct {
			UserID string `json:"userId"`
		} `json:"source"`
		Message struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"message"`
	} `json:"events"`
}

// verifySignature checks the X-Line-Signature header against an
// HMAC-SHA256 of the raw body keyed by the channel secret, matching the
// LINE Messaging API's own webhook verification scheme.
func verifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (h *Handler) lineWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !verifySignature(h.cfg.ChatSecret, body, r.Header.Get("X-Line-Signature")) {
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	var payload lineWebhookEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ctx := r.Context()
	for _, ev := range payload.Events {
		if ev.Message.Type != "text" {
			continue
		}
		h.handleChatMessage(ctx, ev.Source.UserID, strings.TrimSpace(ev.Message.Text))
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleChatMessage runs one classified chat message against the ticket
// repository, replying through the same narrow Pusher the dispatch push
// uses.
func (h *Handler) handleChatMessage(ctx context.Context, userID, text string) {
	intent := chatintent.Classify(text)
	if intent == chatintent.IntentNone {
		return
	}

	bound, boundStatus := h.lookupChatBinding(ctx, userID)

	switch intent {
	case chatintent.IntentIssue:
		if chatintent.StillWaiting(boundStatus) {
			h.replyToUser(userID, chatintent.IssueReply(boundStatus, nil, ""))
			return
		}
		t, err := h.repo.Create(ctx, defaultService, userID)
		if err != nil {
			h.log.WithError(err).Error("failed to create ticket from chat")
			return
		}
		viewURL := h.cfg.ViewBaseURL + "/ticket/" + strconv.FormatInt(t.ID, 10) + "/view?token=" + t.Token
		fresh := &chatintent.Status{Number: t.ID}
		h.replyToUser(userID, chatintent.IssueReply(nil, fresh, viewURL))

	case chatintent.IntentQuery:
		if bound == nil {
			var current *int64
			if n, err := h.repo.CurrentNumber(defaultService); err == nil && n > 0 {
				current = &n
			}
			h.replyToUser(userID, chatintent.QueryReply(nil, current))
			return
		}
		h.replyToUser(userID, chatintent.QueryReply(boundStatus, nil))

	case chatintent.IntentCancel:
		hadBinding := bound != nil
		if hadBinding {
			if _, err := h.repo.Cancel(ctx, bound.TicketID); err != nil {
				h.log.WithError(err).Warn("failed to cancel ticket from chat")
			}
			if err := h.repo.ClearLineUserBinding(userID); err != nil {
				h.log.WithError(err).Warn("failed to clear chat binding after cancel")
			}
		}
		h.replyToUser(userID, chatintent.CancelReply(hadBinding))
	}
}

// lookupChatBinding resolves the chat user's most recent ticket and its
// current status, clearing the binding when it no longer resolves to
// anything useful so a stale binding never survives a lookup.
func (h *Handler) lookupChatBinding(ctx context.Context, userID string) (*chatintent.Binding, *chatintent.Status) {
	ticketID, service, ok := h.repo.LineUserBinding(userID)
	if !ok {
		return nil, nil
	}

	view, found, err := h.repo.Get(ctx, ticketID)
	if err != nil || !found {
		if clearErr := h.repo.ClearLineUserBinding(userID); clearErr != nil {
			h.log.WithError(clearErr).Warn("failed to clear stale chat binding")
		}
		return nil, nil
	}

	status := chatStatusFromView(view)
	if !chatintent.StillWaiting(&status) {
		if clearErr := h.repo.ClearLineUserBinding(userID); clearErr != nil {
			h.log.WithError(clearErr).Warn("failed to clear stale chat binding")
		}
	}
	return &chatintent.Binding{TicketID: ticketID, Service: service}, &status
}

func (h *Handler) replyToUser(userID, text string) {
	if err := h.pusher.Reply(userID, text); err != nil {
		h.log.WithError(err).Warn("chat reply failed")
	}
}
