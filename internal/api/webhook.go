package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"warikanbot/internal/commands"
	"warikanbot/internal/line"
)

// handleCallback receives webhook deliveries. The signature gate is the only
// authentication; once it passes, each event is handled independently and the
// delivery is acknowledged with 200 regardless of per-event outcomes.
func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Line-Signature")
	if !line.ValidateSignature(a.config.ChannelSecret, body, signature) {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var req line.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	for _, event := range req.Events {
		a.handleEvent(r.Context(), event)
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (a *API) handleEvent(ctx context.Context, event line.Event) {
	scopeID := event.Source.ScopeID()
	if scopeID == "" {
		return
	}

	var (
		reply commands.Reply
		err   error
	)
	switch {
	case event.Type == "message" && event.Message != nil && event.Message.Type == "text":
		reply, err = a.handler.HandleText(ctx, scopeID, event.Source.UserID, event.Message.Text)
	case event.Type == "postback" && event.Postback != nil:
		reply, err = a.handler.HandlePostback(ctx, scopeID, event.Source.UserID, event.Postback.Data)
	default:
		return
	}
	if err != nil {
		a.log.Errorw("handle event failed", "scope", scopeID, "error", err)
		reply = commands.Reply{Text: "系統發生錯誤，請稍後再試", ShowMenu: true}
	}

	messages := buildMessages(reply)
	if len(messages) == 0 {
		return
	}
	if err := a.replier.ReplyMessage(ctx, event.ReplyToken, messages...); err != nil {
		a.log.Errorw("reply failed", "scope", scopeID, "error", err)
	}
}

func buildMessages(reply commands.Reply) []map[string]any {
	var messages []map[string]any
	if reply.Text != "" {
		messages = append(messages, line.TextMessage(reply.Text))
	}
	if reply.ShowCategories {
		messages = append(messages, line.CategoryMenu())
	}
	if reply.ShowMenu {
		messages = append(messages, line.MainMenu())
	}
	return messages
}
