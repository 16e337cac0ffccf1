package http

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
	"github.com/secmon-lab/crimemap/pkg/usecase"
)

// ConnectHandler serves the credential gate endpoints
type ConnectHandler struct {
	gate         usecase.GateUseCase
	tokens       *TokenSigner
	middleware   *Middleware
	defaultStore string
}

// NewConnectHandler creates a new connect handler
func NewConnectHandler(gate usecase.GateUseCase, tokens *TokenSigner, mw *Middleware, defaultStore string) *ConnectHandler {
	return &ConnectHandler{
		gate:         gate,
		tokens:       tokens,
		middleware:   mw,
		defaultStore: defaultStore,
	}
}

type connectRequest struct {
	Store  string `json:"store"`
	Secret string `json:"secret"`
}

type sessionResponse struct {
	Connected    bool       `json:"connected"`
	Store        string     `json:"store,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Message      string     `json:"message"`
	DefaultStore string     `json:"default_store"`
}

// HandleConnect runs one credential gate attempt. The request is JSON or
// a urlencoded form with "store" and "secret".
func (h *ConnectHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.From(r.Context())

	req, err := decodeConnectRequest(r)
	if err != nil {
		logger.Debug("Malformed connect request", "error", err)
		writeMessage(w, http.StatusBadRequest, MsgMissingFields)
		return
	}

	session, err := h.gate.Connect(r.Context(), types.StoreName(req.Store), req.Secret)
	if err != nil {
		status, message := connectFailure(err)
		writeMessage(w, status, message)
		return
	}

	// A reconnecting browser drops its previous session and store handle
	if previous, _, ok := h.middleware.lookup(r); ok && previous.ID != session.ID {
		h.gate.Release(r.Context(), previous.ID)
	}

	token, err := h.tokens.Sign(session)
	if err != nil {
		logger.Error("Failed to sign session token", "error", err)
		writeMessage(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, sessionResponse{
		Connected:    true,
		Store:        session.Store.String(),
		ExpiresAt:    &session.ExpiresAt,
		Message:      MsgConnected + session.Store.String(),
		DefaultStore: h.defaultStore,
	})
}

// HandleSession reports the coarse state of the caller
func (h *ConnectHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	session, _, ok := h.middleware.lookup(r)
	if !ok {
		writeJSON(w, http.StatusOK, sessionResponse{
			Connected:    false,
			Message:      MsgNotConnected,
			DefaultStore: h.defaultStore,
		})
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Connected:    true,
		Store:        session.Store.String(),
		ExpiresAt:    &session.ExpiresAt,
		Message:      MsgConnected + session.Store.String(),
		DefaultStore: h.defaultStore,
	})
}

func decodeConnectRequest(r *http.Request) (*connectRequest, error) {
	var req connectRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	req.Store = r.PostForm.Get("store")
	req.Secret = r.PostForm.Get("secret")
	return &req, nil
}

// connectFailure maps a gate error to the status and message shown inline
func connectFailure(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrMissingFields):
		return http.StatusBadRequest, MsgMissingFields

	case errors.Is(err, model.ErrAuthFailed):
		return http.StatusUnauthorized, MsgAuthFailed

	case errors.Is(err, model.ErrConnectionFailed):
		var storeErr *model.StoreError
		if errors.As(err, &storeErr) {
			return http.StatusBadGateway, MsgConnectFailed + storeErr.Cause.Error()
		}
		return http.StatusBadGateway, MsgCouldNotConnect

	default:
		return http.StatusInternalServerError, MsgCouldNotConnect
	}
}
