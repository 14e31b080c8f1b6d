package web

import "time"

// Status is the client snapshot served by the control API and rendered on
// the status page.
type Status struct {
	SessionID       string            `json:"session_id"`
	Connected       bool              `json:"connected"`
	Name            string            `json:"name"`
	Behavior        string            `json:"behavior"`
	X               float64           `json:"x"`
	Y               float64           `json:"y"`
	Anim            string            `json:"anim"`
	Progress        int               `json:"progress"`
	ProgressVisible bool              `json:"progress_visible"`
	OpenedStation   string            `json:"opened_station,omitempty"`
	Players         []PlayerItem      `json:"players"`
	Chat            []ChatItem        `json:"chat"`
	Preferences     map[string]string `json:"preferences,omitempty"`
	Rooms           []RoomListItem    `json:"rooms,omitempty"`
	Alerts          []AlertItem       `json:"alerts,omitempty"`
	Quiz            QuizStatus        `json:"quiz"`
}

type RoomListItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	HasPassword bool   `json:"has_password"`
	Clients     int    `json:"clients"`
	MaxClients  int    `json:"max_clients"`
}

type AlertItem struct {
	Nickname  string    `json:"nickname"`
	TaxAmount float64   `json:"tax_amount"`
	At        time.Time `json:"at"`
}

type PlayerItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Anim  string  `json:"anim"`
	Money int     `json:"money"`
}

type ChatItem struct {
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type QuizStatus struct {
	Phase           string        `json:"phase"`
	Participants    []string      `json:"participants"`
	RoomRoundActive bool          `json:"room_round_active"`
	Round           *RoundItem    `json:"round,omitempty"`
	LastNotice      string        `json:"last_notice,omitempty"`
	LastResult      string        `json:"last_result,omitempty"`
	History         []HistoryItem `json:"history,omitempty"`
}

type RoundItem struct {
	ID         string `json:"id"`
	QuestionID int    `json:"question_id"`
	Question   string `json:"question"`
	Ended      bool   `json:"ended"`
}

type HistoryItem struct {
	RoundID    string    `json:"round_id"`
	QuestionID int       `json:"question_id"`
	Answer     string    `json:"answer"`
	IsCorrect  bool      `json:"is_correct"`
	PrizeMoney int       `json:"prize_money"`
	Submitted  bool      `json:"submitted"`
	CreatedAt  time.Time `json:"created_at"`
}
