// Package events defines every message carried on the local bus.
package events

import (
	"time"

	"office-quiz/internal/bus"
	"office-quiz/internal/world"
)

const (
	TopicPlayerJoined        bus.Topic = "player.joined"
	TopicPlayerUpdated       bus.Topic = "player.updated"
	TopicPlayerLeft          bus.Topic = "player.left"
	TopicStationURL          bus.Topic = "station.url_registered"
	TopicItemUserAdded       bus.Topic = "station.user_added"
	TopicItemUserRemoved     bus.Topic = "station.user_removed"
	TopicChatMessage         bus.Topic = "chat.message_added"
	TopicDialogBubble        bus.Topic = "chat.dialog_bubble"
	TopicRoomData            bus.Topic = "room.data"
	TopicDisconnected        bus.Topic = "room.disconnected"
	TopicLobbyRooms          bus.Topic = "lobby.rooms_changed"
	TopicNotification        bus.Topic = "notification.received"
	TopicQuizJoinReceived    bus.Topic = "quiz.join_received"
	TopicQuizWaitReceived    bus.Topic = "quiz.wait_received"
	TopicQuizStartReceived   bus.Topic = "quiz.start_received"
	TopicQuizEndReceived     bus.Topic = "quiz.end_received"
	TopicQuizLeftReceived    bus.Topic = "quiz.left_received"
	TopicQuizPlayerLeft      bus.Topic = "quiz.player_left_received"
	TopicBehaviorChanged     bus.Topic = "player.behavior_changed"
	TopicStationDialog       bus.Topic = "station.dialog"
	TopicStationOpened       bus.Topic = "station.opened"
	TopicStationClosed       bus.Topic = "station.closed"
	TopicProgress            bus.Topic = "progress.changed"
	TopicQuizPhase           bus.Topic = "quiz.phase_changed"
	TopicQuizNotice          bus.Topic = "quiz.notice"
	TopicQuestionShown       bus.Topic = "quiz.question_shown"
	TopicAnswerFlash         bus.Topic = "quiz.answer_flash"
	TopicQuizResult          bus.Topic = "quiz.result"
	TopicQuizClosed          bus.Topic = "quiz.closed"
)

// Mirror output.

type PlayerJoined struct {
	ID     string             `json:"id"`
	Player world.RemotePlayer `json:"player"`
}

type PlayerUpdated struct {
	ID    string `json:"id"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

type PlayerLeft struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type StationURLRegistered struct {
	StationID string            `json:"stationId"`
	Kind      world.StationKind `json:"kind"`
	URL       string            `json:"url"`
}

type ItemUserAdded struct {
	PlayerID  string            `json:"playerId"`
	StationID string            `json:"stationId"`
	Kind      world.StationKind `json:"kind"`
}

type ItemUserRemoved struct {
	PlayerID  string            `json:"playerId"`
	StationID string            `json:"stationId"`
	Kind      world.StationKind `json:"kind"`
}

type ChatMessageAdded struct {
	ClientID string            `json:"clientId"`
	Message  world.ChatMessage `json:"message"`
}

type DialogBubble struct {
	ClientID string `json:"clientId"`
	Content  string `json:"content"`
}

type RoomData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	HasPassword bool   `json:"hasPassword"`
}

type Disconnected struct {
	Reason string `json:"reason"`
}

// LobbyRoomsChanged carries the full listing after every lobby update.
type LobbyRoomsChanged struct {
	Rooms []world.AvailableRoom `json:"rooms"`
}

// Notification is an account alert pushed by the notification service.
type Notification struct {
	Type      string    `json:"type"`
	Nickname  string    `json:"nickname"`
	TaxAmount float64   `json:"taxAmount"`
	At        time.Time `json:"at"`
}

type QuizJoinReceived struct {
	PlayerName           string   `json:"playerName"`
	ParticipantCount     int      `json:"participantCount"`
	ExistingParticipants []string `json:"existingParticipants"`
}

type QuizWaitReceived struct {
	Seconds float64 `json:"seconds"`
}

type QuizStartReceived struct {
	QuestionID int     `json:"questionId"`
	Seconds    float64 `json:"seconds"`
}

type QuizEndReceived struct{}

type QuizLeftReceived struct{}

type QuizPlayerLeftReceived struct {
	PlayerName string `json:"playerName"`
	ClientID   string `json:"clientId"`
}

// Player machine output.

type BehaviorChanged struct {
	From world.Behavior `json:"from"`
	To   world.Behavior `json:"to"`
}

// StationDialog shows Text next to a station. An empty Text clears it.
type StationDialog struct {
	StationID string            `json:"stationId"`
	Kind      world.StationKind `json:"kind"`
	Text      string            `json:"text"`
}

type StationOpened struct {
	StationID string            `json:"stationId"`
	Kind      world.StationKind `json:"kind"`
	URL       string            `json:"url"`
}

type StationClosed struct {
	StationID string            `json:"stationId"`
	Kind      world.StationKind `json:"kind"`
}

type ProgressChanged struct {
	Value   int  `json:"value"`
	Visible bool `json:"visible"`
}

// Quiz coordinator output.

type QuizPhaseChanged struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type QuizNotice struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

type QuestionShown struct {
	RoundID    string  `json:"roundId"`
	QuestionID int     `json:"questionId"`
	Text       string  `json:"text"`
	Seconds    float64 `json:"seconds"`
}

type AnswerFlash struct {
	RoundID string          `json:"roundId"`
	Correct world.AnswerTag `json:"correct"`
}

type QuizResult struct {
	RoundID string `json:"roundId"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
	Prize   int    `json:"prize"`
}

type QuizClosed struct {
	RoundID string `json:"roundId"`
}

func (PlayerJoined) Topic() bus.Topic { return TopicPlayerJoined }
func (PlayerUpdated) Topic() bus.Topic { return TopicPlayerUpdated }
func (PlayerLeft) Topic() bus.Topic { return TopicPlayerLeft }
func (StationURLRegistered) Topic() bus.Topic { return TopicStationURL }
func (ItemUserAdded) Topic() bus.Topic { return TopicItemUserAdded }
func (ItemUserRemoved) Topic() bus.Topic { return TopicItemUserRemoved }
func (ChatMessageAdded) Topic() bus.Topic { return TopicChatMessage }
func (DialogBubble) Topic() bus.Topic { return TopicDialogBubble }
func (RoomData) Topic() bus.Topic { return TopicRoomData }
func (Disconnected) Topic() bus.Topic { return TopicDisconnected }
func (LobbyRoomsChanged) Topic() bus.Topic { return TopicLobbyRooms }
func (Notification) Topic() bus.Topic { return TopicNotification }
func (QuizJoinReceived) Topic() bus.Topic { return TopicQuizJoinReceived }
func (QuizWaitReceived) Topic() bus.Topic { return TopicQuizWaitReceived }
func (QuizStartReceived) Topic() bus.Topic { return TopicQuizStartReceived }
func (QuizEndReceived) Topic() bus.Topic { return TopicQuizEndReceived }
func (QuizLeftReceived) Topic() bus.Topic { return TopicQuizLeftReceived }
func (QuizPlayerLeftReceived) Topic() bus.Topic { return TopicQuizPlayerLeft }
func (BehaviorChanged) Topic() bus.Topic { return TopicBehaviorChanged }
func (StationDialog) Topic() bus.Topic { return TopicStationDialog }
func (StationOpened) Topic() bus.Topic { return TopicStationOpened }
func (StationClosed) Topic() bus.Topic { return TopicStationClosed }
func (ProgressChanged) Topic() bus.Topic { return TopicProgress }
func (QuizPhaseChanged) Topic() bus.Topic { return TopicQuizPhase }
func (QuizNotice) Topic() bus.Topic { return TopicQuizNotice }
func (QuestionShown) Topic() bus.Topic { return TopicQuestionShown }
func (AnswerFlash) Topic() bus.Topic { return TopicAnswerFlash }
func (QuizResult) Topic() bus.Topic { return TopicQuizResult }
func (QuizClosed) Topic() bus.Topic { return TopicQuizClosed }
