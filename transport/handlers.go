package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"dm-relay/domain"
	relayerrors "dm-relay/errors"
	"dm-relay/services"
)

type Handler struct {
	log        *slog.Logger
	service    services.IRelayService
	upgrader   websocket.Upgrader
	bufferSize int
}

func NewHandler(log *slog.Logger, service services.IRelayService, bufferSize int) *Handler {
	return &Handler{
		log:     log,
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		bufferSize: bufferSize,
	}
}

// Routes wires the public endpoints. The paths mirror the historical API:
// user creation, login, message history, per-pair stats and the websocket.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users", h.createUser)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("GET /messages/{username}", h.listMessages)
	mux.HandleFunc("GET /user_message_stats/{username}", h.userMessageStats)
	mux.HandleFunc("GET /ws", h.serveWS)
	return mux
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.CreateUser(req.Username, req.Password)
	switch {
	case errors.Is(err, relayerrors.ErrUserAlreadyExists):
		writeDetail(w, http.StatusConflict, "User already exists")
	case err != nil:
		h.log.Error("user creation failed", "username", req.Username, "error", err)
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.service.Authenticate(req.Username, req.Password)
	switch {
	case errors.Is(err, relayerrors.ErrInvalidCredentials):
		writeDetail(w, http.StatusUnauthorized, "invalid credentials")
	case err != nil:
		h.log.Error("login failed", "username", req.Username, "error", err)
		writeDetail(w, http.StatusInternalServerError, "login failed")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	messages, err := h.service.ListMessages(username)
	switch {
	case errors.Is(err, relayerrors.ErrUserNotFound):
		writeDetail(w, http.StatusNotFound, "User does not exist")
	case err != nil:
		h.log.Error("message listing failed", "username", username, "error", err)
		writeDetail(w, http.StatusInternalServerError, "could not load messages")
	default:
		writeJSON(w, http.StatusOK, lo.Map(messages, func(m domain.Message, _ int) domain.WireMessage {
			return domain.ToWire(m)
		}))
	}
}

func (h *Handler) userMessageStats(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	stats, err := h.service.GetStats(username)
	switch {
	case errors.Is(err, relayerrors.ErrStatsNotFound):
		writeDetail(w, http.StatusNotFound, "User not found in message stats")
	case err != nil:
		h.log.Error("stats lookup failed", "username", username, "error", err)
		writeDetail(w, http.StatusInternalServerError, "could not load stats")
	default:
		writeJSON(w, http.StatusOK, stats)
	}
}

// serveWS authenticates the upgrade request, wires the connection into the
// relay and blocks until it closes. One goroutine per connection; a panic
// in one connection's processing must never reach another's.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	username, err := h.service.VerifyToken(extractToken(r))
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "invalid or missing token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "username", username, "error", err)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("connection handler panicked", "username", username, "panic", rec)
			_ = conn.Close()
		}
	}()

	c := newWSConn(conn, h.log, h.bufferSize)
	c.setupRead()
	go c.writePump()

	err = h.service.HandleConnection(r.Context(), username, c, c)
	// Shutting the sink down lets the write pump emit a close frame and
	// release the underlying connection.
	c.shutdown()
	if err != nil {
		h.log.Error("connection rejected", "username", username, "error", err)
	}
}

// extractToken accepts the token as a query parameter, a session cookie or
// a bearer header, in that order.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if cookie, err := r.Cookie("session"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && auth[:7] == "Bearer " {
		return auth[7:]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
