package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-coordinator/internal/entity"
)

const (
	actionConnect = "connect"
	actionJoin    = "game:join"
	actionTurn    = "game:turn"
	actionState   = "game:state"
	actionUpdate  = "game:update"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RequestPayload struct {
	GameID string `json:"game_id,omitempty"`
	Cell   *int   `json:"cell,omitempty"`
}

type ResponsePayload struct {
	Player    string        `json:"player,omitempty"`
	Symbol    entity.Symbol `json:"symbol,omitempty"`
	ChannelID string        `json:"channel_id,omitempty"`
	Game      *entity.Game  `json:"game,omitempty"`
	Event     *entity.Event `json:"event,omitempty"`
	Error     string        `json:"error,omitempty"`
	Code      string        `json:"code,omitempty"`
}
