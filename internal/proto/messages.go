package proto

import (
	"encoding/json"
	"time"

	"github.com/RyanMercier/gambleapp-sub000/internal/state"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Client intent type identifiers.
const (
	TypeToggleReady  = "toggle_ready"
	TypeChatMessage  = "chat_message"
	TypePlayerUpdate = "player_update"
	TypePaddleMove   = "paddle_move"
	TypePlayerInput  = "player_input"
	TypePlayerDied   = "player_died"
	TypeRestart      = "restart"
	TypeHeartbeat    = "heartbeat"
)

// Server notification type identifiers.
const (
	TypeWelcome       = "welcome"
	TypeGameInfo      = "game_info"
	TypeGameCountdown = "game_countdown"
	TypeGameStarted   = "game_started"
	TypeGameEnded     = "game_ended"
	TypeGameCancelled = "game_cancelled"
	TypeGameReset     = "game_reset"
	TypeChatRejected  = "chat_rejected"
	TypePlayerJoined  = "player_joined"
	TypePlayerLeft    = "player_left"
	TypeRedirect      = "redirect_to_game"
	TypeState         = "state"
	TypePatch         = "patch"
	TypeError         = "error"
)

// ClientMessage captures an inbound websocket frame. Unused fields stay at
// their zero value; which fields matter depends on Type.
type ClientMessage struct {
	Ver     int     `json:"ver,omitempty"`
	Type    string  `json:"type"`
	Text    string  `json:"text,omitempty"`
	X       float64 `json:"x,omitempty"`
	PaddleY float64 `json:"paddleY,omitempty"`
	TargetX float64 `json:"targetX,omitempty"`
	SentAt  int64   `json:"sentAt,omitempty"`
}

// Welcome is the first frame a session receives after attaching.
type Welcome struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	RoomID    string `json:"roomId"`
	Kind      string `json:"kind"`
}

func NewWelcome(sessionID, roomID, kind string) Welcome {
	return Welcome{Type: TypeWelcome, SessionID: sessionID, RoomID: roomID, Kind: kind}
}

// GameInfo describes the room's rules to a newly attached session.
type GameInfo struct {
	Type        string  `json:"type"`
	Kind        string  `json:"kind"`
	MinPlayers  int     `json:"minPlayers"`
	MaxPlayers  int     `json:"maxPlayers"`
	TickRate    int     `json:"tickRate,omitempty"`
	FieldWidth  float64 `json:"fieldWidth"`
	FieldHeight float64 `json:"fieldHeight"`
}

// GameCountdown announces the remaining seconds before the round starts.
type GameCountdown struct {
	Type      string `json:"type"`
	Countdown int    `json:"countdown"`
}

func NewGameCountdown(countdown int) GameCountdown {
	return GameCountdown{Type: TypeGameCountdown, Countdown: countdown}
}

// GameStarted marks the transition into the playing phase.
type GameStarted struct {
	Type string `json:"type"`
}

func NewGameStarted() GameStarted {
	return GameStarted{Type: TypeGameStarted}
}

// GameEnded reports the round result. Winner is empty when nobody won.
type GameEnded struct {
	Type    string `json:"type"`
	Winner  string `json:"winner,omitempty"`
	Message string `json:"message"`
}

func NewGameEnded(winner, message string) GameEnded {
	return GameEnded{Type: TypeGameEnded, Winner: winner, Message: message}
}

// GameCancelled reports that a pending start was called off.
type GameCancelled struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewGameCancelled(message string) GameCancelled {
	return GameCancelled{Type: TypeGameCancelled, Message: message}
}

// GameReset announces the cycle back to the waiting phase.
type GameReset struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewGameReset(message string) GameReset {
	return GameReset{Type: TypeGameReset, Message: message}
}

// ChatMessage is a chat line relayed to every session in the room.
type ChatMessage struct {
	Type      string `json:"type"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func NewChatMessage(username, message string, at time.Time) ChatMessage {
	return ChatMessage{Type: TypeChatMessage, Username: username, Message: message, Timestamp: at.UnixMilli()}
}

// ChatRejected tells the offending session why its chat line was dropped.
type ChatRejected struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func NewChatRejected(reason string) ChatRejected {
	return ChatRejected{Type: TypeChatRejected, Reason: reason}
}

// PlayerJoined notifies existing sessions about a new roster entry.
type PlayerJoined struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Username  string `json:"username"`
}

func NewPlayerJoined(sessionID, username string) PlayerJoined {
	return PlayerJoined{Type: TypePlayerJoined, SessionID: sessionID, Username: username}
}

// PlayerLeft notifies remaining sessions about a departure.
type PlayerLeft struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

func NewPlayerLeft(sessionID string) PlayerLeft {
	return PlayerLeft{Type: TypePlayerLeft, SessionID: sessionID}
}

// Redirect points a lobby session at the simulation room it should join.
type Redirect struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

func NewRedirect(roomID string) Redirect {
	return Redirect{Type: TypeRedirect, RoomID: roomID}
}

// State carries a full snapshot of the room's state tree.
type State struct {
	Type       string          `json:"type"`
	State      json.RawMessage `json:"state"`
	ServerTime int64           `json:"serverTime"`
}

func NewState(snapshot json.RawMessage, at time.Time) State {
	return State{Type: TypeState, State: snapshot, ServerTime: at.UnixMilli()}
}

// Patch carries one ordered diff batch against the previous snapshot.
type Patch struct {
	Type       string        `json:"type"`
	Patches    []state.Patch `json:"patches"`
	ServerTime int64         `json:"serverTime"`
}

func NewPatch(patches []state.Patch, at time.Time) Patch {
	return Patch{Type: TypePatch, Patches: patches, ServerTime: at.UnixMilli()}
}

// Heartbeat echoes a client heartbeat with server time and measured RTT.
type Heartbeat struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

func NewHeartbeat(serverTime, clientTime time.Time, rtt time.Duration) Heartbeat {
	return Heartbeat{
		Type:       TypeHeartbeat,
		ServerTime: serverTime.UnixMilli(),
		ClientTime: clientTime.UnixMilli(),
		RTTMillis:  rtt.Milliseconds(),
	}
}

// Error is a session-scoped failure notification.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}

// Encode renders any outbound message as a JSON text frame.
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}
