package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-coordinator/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/service"
)

var errBadPayload = errors.New("bad payload")

// handleJoinGame - seats the player into the requested game, an open one, or a new one.
func (that *Server) handleJoinGame(ctx context.Context, conn *connection, msg *Message) error {
	log := that.logger.With("method", "handleJoinGame", "playerID", conn.playerID)

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return that.sendErrorResponse(conn, msg.Action, err)
	}

	result, err := that.matchmaker.JoinOrCreate(ctx, conn.playerID, payloadReq.GameID)
	if err != nil {
		log.Info("failed to join game", "gameID", payloadReq.GameID, "error", err)
		return that.sendErrorResponse(conn, msg.Action, err)
	}

	if err = that.follow(ctx, conn, result.ChannelID); err != nil {
		log.Error("failed to subscribe", "channelID", result.ChannelID, "error", err)
	}

	log.Info("player joined game", "gameID", result.Game.ID, "symbol", result.Symbol)

	return that.sendResult(conn, msg.Action, result)
}

// handleGameTurn - places the player's symbol on the requested cell.
func (that *Server) handleGameTurn(ctx context.Context, conn *connection, msg *Message) error {
	log := that.logger.With("method", "handleGameTurn", "playerID", conn.playerID)

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return that.sendErrorResponse(conn, msg.Action, err)
	}

	if payloadReq.GameID == "" || payloadReq.Cell == nil {
		return that.sendErrorResponse(conn, msg.Action, fmt.Errorf("%w: game_id and cell are required", errBadPayload))
	}

	game, err := that.gamePlay.SubmitMove(ctx, payloadReq.GameID, conn.playerID, *payloadReq.Cell)
	if err != nil {
		log.Info("move rejected", "gameID", payloadReq.GameID, "cell", *payloadReq.Cell, "error", err)
		return that.sendErrorResponse(conn, msg.Action, err)
	}

	return conn.send(msg.Action, ResponsePayload{Player: conn.playerID, Game: game})
}

// handleGameState - current state of a game the player takes part in.
func (that *Server) handleGameState(ctx context.Context, conn *connection, msg *Message) error {
	payloadReq, err := decodePayload(msg)
	if err != nil {
		return that.sendErrorResponse(conn, msg.Action, err)
	}

	if payloadReq.GameID == "" {
		return that.sendErrorResponse(conn, msg.Action, fmt.Errorf("%w: game_id is required", errBadPayload))
	}

	result, err := that.gamePlay.GetGame(ctx, payloadReq.GameID, conn.playerID)
	if err != nil {
		return that.sendErrorResponse(conn, msg.Action, err)
	}

	// a reconnecting player picks the push channel up again here
	if err = that.follow(ctx, conn, result.ChannelID); err != nil {
		that.logger.Error("failed to subscribe", "channelID", result.ChannelID, "error", err)
	}

	return that.sendResult(conn, msg.Action, result)
}

// follow - forwards the events of channelID to the connection until it is closed.
func (that *Server) follow(ctx context.Context, conn *connection, channelID string) error {
	if conn.subscribed(channelID) {
		return nil
	}

	sub, err := that.subscriber.Subscribe(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	if !conn.track(channelID, sub) {
		return sub.Close()
	}

	go func() {
		for event := range sub.Events() {
			if err := conn.send(actionUpdate, ResponsePayload{Player: conn.playerID, Event: &event}); err != nil {
				that.logger.Info("failed to forward event", "channelID", channelID, "error", err)
				return
			}
		}
	}()

	return nil
}

func (that *Server) sendResult(conn *connection, action string, result *service.JoinResult) error {
	return conn.send(action, ResponsePayload{
		Player:    conn.playerID,
		Symbol:    result.Symbol,
		ChannelID: result.ChannelID,
		Game:      result.Game,
	})
}

// sendErrorResponse - reports err to the client; the code lets it tell a lost race from a bad move.
func (that *Server) sendErrorResponse(conn *connection, action string, err error) error {
	code := apperror.Kind(err)
	if errors.Is(err, errBadPayload) {
		code = "bad_payload"
	}

	return conn.send(action, ResponsePayload{Error: err.Error(), Code: code})
}

func decodePayload(msg *Message) (*RequestPayload, error) {
	var payloadReq RequestPayload

	if len(msg.Payload) == 0 {
		return &payloadReq, nil
	}

	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadPayload, err)
	}

	return &payloadReq, nil
}
