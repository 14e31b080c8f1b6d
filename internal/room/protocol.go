// Package room speaks the shared-room protocol: JSON envelopes over a
// websocket, carrying collection patches for the synchronized state and
// named messages in both directions.
package room

import (
	"encoding/json"
	"errors"
)

// Messages sent by the client.
const (
	MsgUpdatePlayer             = "update_player"
	MsgUpdatePlayerName         = "update_player_name"
	MsgReadyToConnect           = "ready_to_connect"
	MsgConnectToComputer        = "connect_to_computer"
	MsgDisconnectFromComputer   = "disconnect_from_computer"
	MsgConnectToWhiteboard      = "connect_to_whiteboard"
	MsgDisconnectFromWhiteboard = "disconnect_from_whiteboard"
	MsgRequestQuiz              = "request_quiz"
	MsgLeaveQuiz                = "leave_quiz"
)

// Messages sent by the server. MsgAddChatMessage travels both ways.
const (
	MsgJoined          = "joined"
	MsgPatch           = "patch"
	MsgRoomData        = "send_room_data"
	MsgAddChatMessage  = "add_chat_message"
	MsgPlayerJoinQuiz  = "player_join_quiz"
	MsgWaitForNextQuiz = "wait_for_next_quiz"
	MsgStartQuiz       = "start_quiz"
	MsgEndQuiz         = "end_quiz"
	MsgLeftQuiz        = "left_quiz"
	MsgPlayerLeftQuiz  = "player_left_quiz"
)

// Messages sent by the lobby room.
const (
	MsgLobbyRooms       = "rooms"
	MsgLobbyRoomAdded   = "+"
	MsgLobbyRoomRemoved = "-"
)

// Synchronized collections.
const (
	CollectionPlayers     = "players"
	CollectionChairs      = "chairs"
	CollectionTerminals   = "terminals"
	CollectionComputers   = "computers"
	CollectionWhiteboards = "whiteboards"
	CollectionChat        = "chatMessages"
)

// Patch operations.
const (
	OpAdd         = "add"
	OpRemove      = "remove"
	OpChange      = "change"
	OpChildAdd    = "child_add"
	OpChildRemove = "child_remove"
)

const FieldConnectedUser = "connectedUser"

var (
	ErrNotConnected = errors.New("room not connected")
	ErrJoinRejected = errors.New("room join rejected")
)

type clientEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type serverEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type JoinedPayload struct {
	SessionID string `json:"sessionId"`
	Error     string `json:"error,omitempty"`
}

// Patch is one change to a synchronized collection. Change patches carry
// Changes; child patches name the nested Field and carry the element in
// Value.
type Patch struct {
	Collection string          `json:"collection"`
	Op         string          `json:"op"`
	Key        string          `json:"key"`
	Field      string          `json:"field,omitempty"`
	Value      json.RawMessage `json:"value,omitempty"`
	Changes    []FieldChange   `json:"changes,omitempty"`
}

type FieldChange struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

type PlayerState struct {
	Name           string  `json:"name"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Anim           string  `json:"anim"`
	ReadyToConnect bool    `json:"readyToConnect"`
	Money          int     `json:"money"`
	Score          int     `json:"score"`
}

type StationState struct {
	X             float64  `json:"x"`
	Y             float64  `json:"y"`
	Direction     string   `json:"direction,omitempty"`
	ConnectedUser []string `json:"connectedUser,omitempty"`
}

type ChatState struct {
	Author    string `json:"author"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

type UpdatePlayerPayload struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Anim string  `json:"anim"`
}

type NamePayload struct {
	Name string `json:"name"`
}

type ComputerPayload struct {
	ComputerID string `json:"computerId"`
}

type WhiteboardPayload struct {
	WhiteboardID string `json:"whiteboardId"`
}

type ChatPayload struct {
	ClientID string `json:"clientId,omitempty"`
	Content  string `json:"content"`
}

type RoomDataPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	HasPassword bool   `json:"hasPassword"`
}

type PlayerJoinQuizPayload struct {
	PlayerName           string   `json:"playerName"`
	ParticipantsCount    int      `json:"participantsCount"`
	ExistingParticipants []string `json:"existingParticipants"`
}

type WaitForNextQuizPayload struct {
	TimeUntilNextQuiz float64 `json:"timeUntilNextQuiz"`
}

// StartQuizPayload.QuizTime is the round length in seconds.
type StartQuizPayload struct {
	CurQuiz  int     `json:"curQuiz"`
	QuizTime float64 `json:"quizTime"`
}

type PlayerLeftQuizPayload struct {
	PlayerName string `json:"playerName"`
	ClientID   string `json:"clientId"`
}

// AvailableRoomPayload is one room in the lobby listing. The "+" message
// carries it as the second element of a [roomId, room] pair.
type AvailableRoomPayload struct {
	RoomID     string           `json:"roomId"`
	Clients    int              `json:"clients"`
	MaxClients int              `json:"maxClients"`
	Metadata   RoomDataMetadata `json:"metadata"`
}

type RoomDataMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	HasPassword bool   `json:"hasPassword"`
}
