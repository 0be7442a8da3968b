package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aptomizer/core/internal/agent"
	"github.com/aptomizer/core/internal/state"
)

const msgChatDisabled = "Chat is not configured"

// Websocket limits.
const (
	wsReadLimit    = 1 << 20
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = wsPongWait * 9 / 10
	wsWriteTimeout = 10 * time.Second
)

type chatRequest struct {
	Messages          []agent.Message `json:"messages"`
	UserWalletAddress string          `json:"userWalletAddress"`
}

var (
	errWalletRequired   = errors.New(msgWalletRequired)
	errUserNotFound     = errors.New(msgUserNotFound)
	errAIWalletNotFound = errors.New(msgAIWalletNotFound)
)

// chatSession resolves the user and AI wallet a chat acts for.
func (ws *WebServer) chatSession(ctx context.Context, walletAddress string) (agent.Session, int, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" {
		return agent.Session{}, http.StatusBadRequest, errWalletRequired
	}
	user, err := ws.users.GetUserByWalletAddress(ctx, walletAddress)
	if errors.Is(err, state.ErrUserNotFound) {
		return agent.Session{}, http.StatusNotFound, errUserNotFound
	}
	if err != nil {
		return agent.Session{}, http.StatusInternalServerError, fmt.Errorf("failed to load user: %w", err)
	}
	if user.AIWallet == nil {
		return agent.Session{}, http.StatusNotFound, errAIWalletNotFound
	}
	return agent.Session{User: user, WalletAddress: walletAddress, AIWallet: user.AIWallet}, http.StatusOK, nil
}

// handleChat streams a chat answer as server-sent events.
func (ws *WebServer) handleChat(w http.ResponseWriter, r *http.Request) {
	if ws.chat == nil {
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, msgChatDisabled)
		return
	}

	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	session, status, err := ws.chatSession(r.Context(), req.UserWalletAddress)
	if err != nil {
		if status == http.StatusInternalServerError {
			webLogger.Error().Err(err).Str("walletAddress", req.UserWalletAddress).Msg("Failed to resolve chat session")
			ws.writeErrorResponse(w, status, agent.MessageUnknown)
			return
		}
		ws.writeErrorResponse(w, status, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emit := func(event agent.Event) {
		data, err := json.Marshal(event)
		if err != nil {
			webLogger.Error().Err(err).Str("event", event.Type).Msg("Failed to encode chat event")
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
		flusher.Flush()
	}

	// The engine already reported the failure as an error event.
	_ = ws.chat.Chat(r.Context(), session, req.Messages, emit)
}

// handleChatWebSocket serves chats over a websocket. Each client message is a
// chatRequest; events are sent back as JSON frames.
func (ws *WebServer) handleChatWebSocket(w http.ResponseWriter, r *http.Request) {
	if ws.chat == nil {
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, msgChatDisabled)
		return
	}

	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		webLogger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	pongWait := ws.wsPongWait
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Pings and events share the connection's single writer.
	var writeMu sync.Mutex
	stopPings := make(chan struct{})
	defer close(stopPings)
	go func() {
		ticker := time.NewTicker(ws.wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-stopPings:
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	ctx := r.Context()
	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				webLogger.Warn().Err(err).Msg("Websocket closed unexpectedly")
			}
			return
		}

		writeFailed := false
		emit := func(event agent.Event) {
			if writeFailed {
				return
			}
			writeMu.Lock()
			defer writeMu.Unlock()
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				webLogger.Warn().Err(err).Msg("Failed to write chat event")
				writeFailed = true
			}
		}

		session, status, err := ws.chatSession(ctx, req.UserWalletAddress)
		if err != nil {
			message := err.Error()
			if status == http.StatusInternalServerError {
				webLogger.Error().Err(err).Str("walletAddress", req.UserWalletAddress).Msg("Failed to resolve chat session")
				message = agent.MessageUnknown
			}
			emit(agent.Event{Type: agent.EventError, Error: message})
			continue
		}

		_ = ws.chat.Chat(ctx, session, req.Messages, emit)
		if writeFailed {
			return
		}
		// Pongs received during the turn are only processed by the next read.
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
