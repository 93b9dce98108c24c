// Package http wires the chat operation set onto a net/http mux.
package http

import (
	"log/slog"
	"net/http"

	"chat-hub/contract"
	"chat-hub/transport/http/handlers"
	"chat-hub/transport/http/middleware"
)

// NewRouter builds the full route table. Login and the health probe are
// public; everything else sits behind the bearer-token middleware.
func NewRouter(log *slog.Logger, chat contract.IChatService) http.Handler {
	chatHandler := handlers.NewChatHandler(log, chat)
	auth := middleware.Auth()

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/login", chatHandler.Login)

	// Protected - session
	mux.Handle("POST /api/v1/logout", auth(http.HandlerFunc(chatHandler.Logout)))
	mux.Handle("GET /api/v1/whatsup", auth(http.HandlerFunc(chatHandler.WhatsUp)))

	// Protected - channels
	mux.Handle("GET /api/v1/channels", auth(http.HandlerFunc(chatHandler.Channels)))
	mux.Handle("POST /api/v1/channels/{channel}/join", auth(http.HandlerFunc(chatHandler.Join)))
	mux.Handle("POST /api/v1/channels/{channel}/part", auth(http.HandlerFunc(chatHandler.Part)))
	mux.Handle("PUT /api/v1/channels/{channel}/topic", auth(http.HandlerFunc(chatHandler.Topic)))
	mux.Handle("POST /api/v1/channels/{channel}/kick", auth(http.HandlerFunc(chatHandler.Kick)))
	mux.Handle("POST /api/v1/channels/{channel}/ban", auth(http.HandlerFunc(chatHandler.Ban)))
	mux.Handle("POST /api/v1/channels/{channel}/admin", auth(http.HandlerFunc(chatHandler.Admin)))
	mux.Handle("POST /api/v1/channels/{channel}/messages", auth(http.HandlerFunc(chatHandler.Message)))

	// Protected - users
	mux.Handle("POST /api/v1/users/{username}/ignore", auth(http.HandlerFunc(chatHandler.Ignore)))
	mux.Handle("POST /api/v1/users/{username}/privy", auth(http.HandlerFunc(chatHandler.Privy)))

	return middleware.Logging(log)(mux)
}
