package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"chat-hub/contract"
	"chat-hub/transport/http/middleware"
)

const (
	defaultPollTimeout = 25 * time.Second
	maxPollTimeout     = 30 * time.Second
)

// ChatHandler binds the chat operation set to HTTP. Every protected
// endpoint reads the session token placed in context by the auth
// middleware and lets the service do all validation.
type ChatHandler struct {
	log  *slog.Logger
	chat contract.IChatService
}

func NewChatHandler(log *slog.Logger, chat contract.IChatService) *ChatHandler {
	return &ChatHandler{log: log, chat: chat}
}

func (h *ChatHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	session, err := h.chat.Login(input.Username, input.Password)
	if err != nil {
		writeFault(h.log, w, err)
		return
	}
	writeResult(h.log, w, http.StatusOK, session)
}

func (h *ChatHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.Logout(middleware.GetSession(r.Context())); err != nil {
		writeFault(h.log, w, err)
		return
	}
	writeResult(h.log, w, http.StatusOK, nil)
}

func (h *ChatHandler) Channels(w http.ResponseWriter, r *http.Request) {
	infos, err := h.chat.Channels(middleware.GetSession(r.Context()))
	if err != nil {
		writeFault(h.log, w, err)
		return
	}
	writeResult(h.log, w, http.StatusOK, infos)
}

func (h *ChatHandler) Join(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	detail, err := h.chat.Join(middleware.GetSession(r.Context()), r.PathValue("channel"), input.Password)
	if err != nil {
		writeFault(h.log, w, err)
		return
	}
	writeResult(h.log, w, http.StatusOK, detail)
}

func (h *ChatHandler) Part(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.Part(middleware.GetSession(r.Context()), r.PathValue("channel")); err != nil {
		writeFault(h.log, w, err)
		return
	}
	writeResult(h.log, w, http.StatusOK, nil)
}

func (h *ChatHandler) Topic(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.chat.Topic(middleware.GetSession(r.Context()), r.PathValue("channel"), input.Text); err != nil {
		writeFault(h.log, w, err)
		return
	}
	writeResult(h.log, w, http.StatusOK, nil)
}

func (h *ChatHandler) Kick(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.chat.Kick(middleware.GetSession(r.Context()), r.PathValue("channel"), input.Username); err != nil {
		writeFault(h.log, w, err)
		return
	}
	writeResult(h.log, w, http.StatusOK, nil)
}

func (h *ChatHandler) Ban(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		State    bool   `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.chat.Ban(middleware.GetSession(r.Context()), r.PathValue("channel"), input.Username, input.State); err != nil {
		writeFault(h.log, w, err)
		return
	}
	writeResult(h.log, w, http.StatusOK, nil)
}

func (h *ChatHandler) Admin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		State    bool   `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.chat.Admin(middleware.GetSession(r.Context()), r.PathValue("channel"), input.Username, input.State); err != nil {
		writeFault(h.log, w, err)
		return
	}
	writeResult(h.log, w, http.StatusOK, nil)
}

func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.chat.Message(middleware.GetSession(r.Context()), r.PathValue("channel"), input.Text); err != nil {
		writeFault(h.log, w, err)
		return
	}
	writeResult(h.log, w, http.StatusOK, nil)
}

func (h *ChatHandler) Ignore(w http.ResponseWriter, r *http.Request) {
	var input struct {
		State bool `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.chat.Ignore(middleware.GetSession(r.Context()), r.PathValue("username"), input.State); err != nil {
		writeFault(h.log, w, err)
		return
	}
	writeResult(h.log, w, http.StatusOK, nil)
}

func (h *ChatHandler) Privy(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.chat.Privy(middleware.GetSession(r.Context()), r.PathValue("username"), input.Text); err != nil {
		writeFault(h.log, w, err)
		return
	}
	writeResult(h.log, w, http.StatusOK, nil)
}

// WhatsUp is the long-poll endpoint. The client may shorten the wait
// via timeout_ms; the server caps it so a request can never pin a
// connection past maxPollTimeout.
func (h *ChatHandler) WhatsUp(w http.ResponseWriter, r *http.Request) {
	timeout := defaultPollTimeout
	if raw := r.URL.Query().Get("timeout_ms"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			writeError(w, http.StatusBadRequest, "INVALID_TIMEOUT", "timeout_ms must be a non-negative integer")
			return
		}
		timeout = time.Duration(ms) * time.Millisecond
	}
	if timeout > maxPollTimeout {
		timeout = maxPollTimeout
	}

	news, err := h.chat.WhatsUp(r.Context(), middleware.GetSession(r.Context()), timeout)
	if err != nil {
		writeFault(h.log, w, err)
		return
	}
	writeResult(h.log, w, http.StatusOK, news)
}
