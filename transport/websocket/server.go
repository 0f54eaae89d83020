package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/entity"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/notifier"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/service"
)

const (
	sessionCookie   = "user_session"
	sessionLifetime = 24 * time.Hour
	shutdownTimeout = 5 * time.Second
)

type matchmaker interface {
	JoinOrCreate(ctx context.Context, playerID, gameID string) (*service.JoinResult, error)
}

type gamePlay interface {
	SubmitMove(ctx context.Context, gameID, playerID string, cell int) (*entity.Game, error)
	GetGame(ctx context.Context, gameID, playerID string) (*service.JoinResult, error)
}

type subscriber interface {
	Subscribe(ctx context.Context, channelID string) (*notifier.Subscription, error)
}

type handlerFunc func(ctx context.Context, conn *connection, msg *Message) error

type Server struct {
	logger *slog.Logger

	matchmaker matchmaker
	gamePlay   gamePlay
	subscriber subscriber

	upgrader websocket.Upgrader
	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, matchmaker matchmaker, gamePlay gamePlay, subscriber subscriber) *Server {
	server := &Server{
		logger:     logger.With("component", "websocket"),
		matchmaker: matchmaker,
		gamePlay:   gamePlay,
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionJoin] = server.handleJoinGame
	server.handlers[actionTurn] = server.handleGameTurn
	server.handlers[actionState] = server.handleGameState

	return server
}

func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server, returns once ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - upgrades the connection to WebSocket.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeConnection")

	playerID, header := that.sessionCookie(req)

	wsConn, err := that.upgrader.Upgrade(writer, req, header)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := newConnection(wsConn, playerID)
	defer conn.close()

	log = log.With("playerID", playerID)
	log.Info("WebSocket connection established")

	if err = conn.send(actionConnect, ResponsePayload{Player: playerID}); err != nil {
		log.Error("failed to greet player", "error", err)
		return
	}

	if err = that.handleMessages(ctx, conn); err != nil {
		log.Info("WebSocket connection closed", "reason", err)
	}
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, conn *connection) error {
	log := that.logger.With("method", "handleMessages", "playerID", conn.playerID)

	for {
		var message Message
		if err := conn.ws.ReadJSON(&message); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}

			return fmt.Errorf("failed to read message: %w", err)
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			if err := conn.send(message.Action, ResponsePayload{Error: "unknown action", Code: "unknown_action"}); err != nil {
				return err
			}
			continue
		}

		if err := handler(ctx, conn, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// sessionCookie - the player id from the session cookie, or a new one to be set on upgrade.
func (that *Server) sessionCookie(req *http.Request) (string, http.Header) {
	cookie, err := req.Cookie(sessionCookie)
	if err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	cookie = &http.Cookie{
		Name:     sessionCookie,
		Value:    uuid.NewString(),
		Expires:  time.Now().Add(sessionLifetime),
		Path:     "/ws",
		HttpOnly: true,
	}

	header := http.Header{}
	header.Add("Set-Cookie", cookie.String())

	that.logger.Info("session cookie not found, new one created", "playerID", cookie.Value)

	return cookie.Value, header
}
