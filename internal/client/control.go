package client

import (
	"context"
	"fmt"
	"log"
	"strings"

	"office-quiz/internal/auth"
	"office-quiz/internal/web"
	"office-quiz/internal/world"
)

// Input changes the held keys and queues key presses for the next frame.
// Nil movement fields leave the held state as it is.
type Input struct {
	Left  *bool
	Right *bool
	Up    *bool
	Down  *bool

	// Press is one of "interact", "quiz" or "open".
	Press string

	StationKind  string
	StationID    string
	ClearStation bool
}

func (c *Client) ApplyInput(ctx context.Context, in Input) error {
	var applyErr error
	err := c.loop.Call(ctx, func() {
		applyErr = c.applyInput(in)
	})
	if err != nil {
		return err
	}
	return applyErr
}

func (c *Client) applyInput(in Input) error {
	if c.closed {
		return ErrDisconnected
	}
	var nearby *world.Station
	if in.StationKind != "" {
		kind := world.StationKind(in.StationKind)
		if !kind.Valid() {
			return fmt.Errorf("%w: station kind %q", ErrInvalidInput, in.StationKind)
		}
		station, ok := c.mirror.Station(kind, in.StationID)
		if !ok {
			return fmt.Errorf("%w: %s %s", ErrUnknownStation, kind, in.StationID)
		}
		nearby = station
	}
	switch strings.TrimSpace(in.Press) {
	case "":
	case "interact":
		c.presses.interact = true
	case "quiz":
		c.presses.quiz = true
	case "open":
		c.presses.open = true
	default:
		return fmt.Errorf("%w: press %q", ErrInvalidInput, in.Press)
	}
	setHeld(&c.held.left, in.Left)
	setHeld(&c.held.right, in.Right)
	setHeld(&c.held.up, in.Up)
	setHeld(&c.held.down, in.Down)
	if nearby != nil {
		c.nearby = nearby
	} else if in.ClearStation {
		c.nearby = nil
	}
	return nil
}

func setHeld(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}

// SetName renames the player and optionally switches its texture.
func (c *Client) SetName(ctx context.Context, name, texture string) error {
	var setErr error
	err := c.loop.Call(ctx, func() {
		if c.closed {
			setErr = ErrDisconnected
			return
		}
		if !c.machine.SetName(name) {
			setErr = ErrInvalidName
			return
		}
		if texture != "" {
			c.machine.SetTexture(texture)
		}
	})
	if err != nil {
		return err
	}
	return setErr
}

func (c *Client) SendChat(ctx context.Context, content string) error {
	var sendErr error
	err := c.loop.Call(ctx, func() {
		if c.closed {
			sendErr = ErrDisconnected
			return
		}
		if !c.machine.Chat(content) {
			sendErr = fmt.Errorf("%w: chat not sent", ErrInvalidInput)
		}
	})
	if err != nil {
		return err
	}
	return sendErr
}

// Status snapshots the client. Preferences are read from the store on the
// calling goroutine.
func (c *Client) Status(ctx context.Context) (web.Status, error) {
	var status web.Status
	if err := c.loop.Call(ctx, func() { status = c.snapshot() }); err != nil {
		return web.Status{}, err
	}
	prefs, err := c.store.Preferences(ctx)
	if err != nil {
		log.Printf("status preferences unavailable error=%v", err)
	}
	delete(prefs, auth.PreferenceKey)
	if len(prefs) > 0 {
		status.Preferences = prefs
	}
	return status, nil
}

// QuizStatus snapshots the quiz state plus up to history stored results.
func (c *Client) QuizStatus(ctx context.Context, history int) (web.QuizStatus, error) {
	var status web.QuizStatus
	if err := c.loop.Call(ctx, func() { status = c.quizSnapshot() }); err != nil {
		return web.QuizStatus{}, err
	}
	if history <= 0 {
		return status, nil
	}
	results, err := c.store.RecentResults(ctx, history)
	if err != nil {
		return status, err
	}
	for _, result := range results {
		status.History = append(status.History, web.HistoryItem{
			RoundID:    result.RoundID,
			QuestionID: result.QuestionID,
			Answer:     result.Answer,
			IsCorrect:  result.IsCorrect,
			PrizeMoney: result.PrizeMoney,
			Submitted:  result.Submitted,
			CreatedAt:  result.CreatedAt,
		})
	}
	return status, nil
}

func (c *Client) snapshot() web.Status {
	x, y := c.machine.Position()
	progress, visible := c.machine.ProgressValue()
	status := web.Status{
		SessionID:       c.mirror.SessionID(),
		Connected:       c.connected,
		Name:            c.machine.Name(),
		Behavior:        c.machine.Behavior().String(),
		X:               x,
		Y:               y,
		Anim:            c.machine.Anim(),
		Progress:        progress,
		ProgressVisible: visible,
		Quiz:            c.quizSnapshot(),
	}
	if opened := c.machine.OpenedStation(); opened != nil {
		status.OpenedStation = string(opened.Kind) + ":" + opened.ID
	}
	for _, player := range c.mirror.Players() {
		status.Players = append(status.Players, web.PlayerItem{
			ID:    player.ID,
			Name:  player.Name,
			X:     player.X,
			Y:     player.Y,
			Anim:  player.Anim,
			Money: player.Money,
		})
	}
	for _, msg := range c.mirror.Chat() {
		status.Chat = append(status.Chat, web.ChatItem{
			Author:    msg.Author,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}
	for _, r := range c.lobby.Rooms() {
		status.Rooms = append(status.Rooms, web.RoomListItem{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			HasPassword: r.HasPassword,
			Clients:     r.Clients,
			MaxClients:  r.MaxClients,
		})
	}
	for _, alert := range c.alerts {
		status.Alerts = append(status.Alerts, web.AlertItem{
			Nickname:  alert.Nickname,
			TaxAmount: alert.TaxAmount,
			At:        alert.At,
		})
	}
	return status
}

func (c *Client) quizSnapshot() web.QuizStatus {
	status := web.QuizStatus{
		Phase:           string(c.quiz.Phase()),
		Participants:    c.quiz.Participants(),
		RoomRoundActive: c.quiz.RoomRoundActive(),
		LastNotice:      c.lastNotice,
		LastResult:      c.lastResult,
	}
	if round := c.quiz.Round(); round != nil {
		status.Round = &web.RoundItem{
			ID:         round.ID,
			QuestionID: round.Question.ID,
			Question:   c.printer.Question(round.Question.ID),
			Ended:      round.Ended,
		}
	}
	return status
}
