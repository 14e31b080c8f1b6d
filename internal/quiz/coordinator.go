// Package quiz coordinates the local side of the room-wide O/X quiz:
// enrollment, waiting for the next round, running a round, scoring the
// player's floor position and submitting the result for a reward.
package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"office-quiz/internal/bus"
	"office-quiz/internal/events"
	"office-quiz/internal/notice"
	"office-quiz/internal/reward"
	"office-quiz/internal/room"
	"office-quiz/internal/timer"
	"office-quiz/internal/world"
)

type Phase string

const (
	PhaseNoRound          Phase = "no_round"
	PhaseAwaitingStart    Phase = "awaiting_start"
	PhaseActive           Phase = "active"
	PhaseWaitingNextRound Phase = "waiting_next_round"
)

// Player is the local avatar as seen by the coordinator.
type Player interface {
	Name() string
	Position() (float64, float64)
	StartProgress(d time.Duration, onZero func())
	FinishWork()
}

type TokenSource interface {
	Token() (string, error)
}

type Submitter interface {
	Submit(ctx context.Context, token string, sub reward.Submission) (reward.Result, json.RawMessage, error)
}

// Async runs blocking work off the event loop and posts the returned
// continuation back onto it.
type Async interface {
	Go(work func() func())
}

type NameResolver interface {
	NameOf(id string) string
}

// Outcome is what gets persisted for each finished round.
type Outcome struct {
	RoundID    string
	QuestionID int
	Answer     world.AnswerTag
	Answered   bool
	Correct    bool
	Prize      int
	Submitted  bool
	Response   json.RawMessage
	FinishedAt time.Time
}

type Recorder interface {
	RecordOutcome(ctx context.Context, outcome Outcome) error
}

type Deps struct {
	Room      room.Room
	Bus       *bus.Bus
	Player    Player
	Scheduler timer.Scheduler
	Async     Async
	Tokens    TokenSource
	Rewards   Submitter
	Names     NameResolver
	History   Recorder
	Printer   *notice.Printer
	Now       func() time.Time
}

type Options struct {
	Prize          int
	WaitGrace      time.Duration
	Zone           world.AnswerZone
	RequestTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Prize:          100,
		WaitGrace:      time.Second,
		Zone:           world.DefaultAnswerZone(),
		RequestTimeout: 10 * time.Second,
	}
}

type Round struct {
	ID        string
	Epoch     uint64
	Question  Question
	Duration  time.Duration
	StartedAt time.Time
	Ended     bool
	Answer    world.AnswerTag
	Answered  bool
}

type Coordinator struct {
	deps Deps
	opts Options

	phase           Phase
	participants    map[string]struct{}
	roomRoundActive bool
	round           *Round
	epoch           uint64
	reenroll        *timer.Once
	closed          bool
}

func New(deps Deps, opts Options) *Coordinator {
	if deps.Printer == nil {
		deps.Printer = notice.NewPrinter("en")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Async == nil {
		deps.Async = inline{}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultOptions().RequestTimeout
	}
	return &Coordinator{
		deps:         deps,
		opts:         opts,
		phase:        PhaseNoRound,
		participants: make(map[string]struct{}),
		reenroll:     timer.NewOnce(deps.Scheduler),
	}
}

// Attach subscribes the coordinator to the quiz messages forwarded by the
// mirror.
func (c *Coordinator) Attach() {
	b := c.deps.Bus
	bus.On(b, c, func(e events.QuizJoinReceived) { c.PlayerJoinQuiz(e.PlayerName, e.ParticipantCount, e.ExistingParticipants) })
	bus.On(b, c, func(e events.QuizWaitReceived) { c.WaitForNextQuiz(e.Seconds) })
	bus.On(b, c, func(e events.QuizStartReceived) { c.StartQuiz(e.QuestionID, e.Seconds) })
	bus.On(b, c, func(events.QuizEndReceived) { c.EndQuiz() })
	bus.On(b, c, func(events.QuizLeftReceived) { c.LeftQuiz() })
	bus.On(b, c, func(e events.QuizPlayerLeftReceived) { c.PlayerLeftQuiz(e.PlayerName, e.ClientID) })
}

func (c *Coordinator) Phase() Phase {
	return c.phase
}

func (c *Coordinator) Round() *Round {
	return c.round
}

func (c *Coordinator) RoomRoundActive() bool {
	return c.roomRoundActive
}

func (c *Coordinator) IsParticipant(name string) bool {
	_, ok := c.participants[name]
	return ok
}

func (c *Coordinator) Participants() []string {
	out := make([]string, 0, len(c.participants))
	for name := range c.participants {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// PlayerJoinQuiz records a new participant. Existing names are merged in
// without notices; a repeated join for a known name changes nothing.
func (c *Coordinator) PlayerJoinQuiz(name string, count int, existing []string) {
	if c.closed {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		log.Printf("quiz join dropped reason=empty_name")
		return
	}
	isNew := !c.IsParticipant(name)
	for _, other := range existing {
		if other = strings.TrimSpace(other); other != "" {
			c.participants[other] = struct{}{}
		}
	}
	c.participants[name] = struct{}{}

	if name == c.deps.Player.Name() {
		c.reenroll.Cancel()
		if c.phase == PhaseNoRound || c.phase == PhaseWaitingNextRound {
			c.setPhase(PhaseAwaitingStart)
		}
	}
	if !isNew {
		return
	}
	log.Printf("quiz participant joined name=%s participants=%d", name, len(c.participants))
	if c.roomRoundActive {
		if count <= 0 {
			count = len(c.participants)
		}
		c.notify(notice.QuizHeadcount, count)
		return
	}
	c.notify(notice.QuizJoined, name)
}

// WaitForNextQuiz arms a re-request for when the next round opens. The
// grace period keeps the request from racing the server's own timer.
func (c *Coordinator) WaitForNextQuiz(seconds float64) {
	if c.closed {
		return
	}
	if c.phase == PhaseActive {
		log.Printf("quiz wait ignored reason=round_active")
		return
	}
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	wait := time.Duration(seconds*float64(time.Second)) + c.opts.WaitGrace
	c.setPhase(PhaseWaitingNextRound)
	c.reenroll.Arm(wait, c.requestAgain)
	c.deps.Player.StartProgress(wait, nil)
	c.notify(notice.QuizWaitNext, int(math.Ceil(seconds)))
	log.Printf("quiz waiting for next round wait=%s", wait)
}

func (c *Coordinator) requestAgain() {
	if c.closed || c.phase != PhaseWaitingNextRound {
		return
	}
	if c.deps.Room == nil {
		return
	}
	if err := c.deps.Room.Send(room.MsgRequestQuiz, nil); err != nil {
		log.Printf("quiz re-request failed error=%v", err)
		return
	}
	log.Printf("quiz re-requested after wait")
}

// StartQuiz opens a round for the local player if they are enrolled.
func (c *Coordinator) StartQuiz(questionID int, seconds float64) {
	if c.closed {
		return
	}
	c.roomRoundActive = true
	c.notify(notice.QuizStarted)

	name := c.deps.Player.Name()
	if name == "" || !c.IsParticipant(name) {
		log.Printf("quiz start ignored reason=not_participant question_id=%d", questionID)
		return
	}
	if c.round != nil && !c.round.Ended {
		log.Printf("quiz start ignored reason=round_active round_id=%s", c.round.ID)
		return
	}
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	c.reenroll.Cancel()
	c.epoch++
	r := &Round{
		ID:        uuid.NewString(),
		Epoch:     c.epoch,
		Question:  LookupQuestion(questionID),
		Duration:  time.Duration(seconds * float64(time.Second)),
		StartedAt: c.deps.Now(),
	}
	if !r.Question.Known {
		log.Printf("quiz question unknown question_id=%d fallback=default", questionID)
	}
	c.round = r
	c.setPhase(PhaseActive)
	c.deps.Bus.Publish(events.QuestionShown{
		RoundID:    r.ID,
		QuestionID: questionID,
		Text:       c.deps.Printer.Question(questionID),
		Seconds:    seconds,
	})
	epoch := r.Epoch
	c.deps.Player.StartProgress(r.Duration, func() { c.roundExpired(epoch) })
	log.Printf("quiz round started round_id=%s question_id=%d duration=%s", r.ID, questionID, r.Duration)
}

func (c *Coordinator) roundExpired(epoch uint64) {
	if c.round == nil || c.round.Epoch != epoch || c.round.Ended {
		return
	}
	log.Printf("quiz round timer expired round_id=%s", c.round.ID)
	c.finishRound()
}

// EndQuiz scores the current round. It is a no-op when no round is open,
// including after the local round timer already ended it.
func (c *Coordinator) EndQuiz() {
	if c.closed {
		return
	}
	if c.roomRoundActive {
		c.roomRoundActive = false
		c.notify(notice.QuizEnded)
	}
	c.finishRound()
}

func (c *Coordinator) finishRound() {
	r := c.round
	if r == nil || r.Ended {
		return
	}
	r.Ended = true
	x, y := c.deps.Player.Position()
	r.Answer, r.Answered = c.opts.Zone.Resolve(x, y)
	correct := r.Answered && r.Answer == r.Question.Answer
	prize := 0
	if correct {
		prize = c.opts.Prize
	}
	c.deps.Bus.Publish(events.AnswerFlash{RoundID: r.ID, Correct: r.Question.Answer})
	c.deps.Player.FinishWork()
	c.setPhase(PhaseNoRound)
	log.Printf("quiz round ended round_id=%s answer=%s answered=%t correct=%t", r.ID, r.Answer, r.Answered, correct)

	outcome := Outcome{
		RoundID:    r.ID,
		QuestionID: r.Question.ID,
		Answer:     r.Answer,
		Answered:   r.Answered,
		Correct:    correct,
		Prize:      prize,
	}
	token, err := c.token()
	if err != nil {
		log.Printf("quiz submission skipped round_id=%s error=%v", r.ID, err)
		c.persist(outcome)
		c.showResult(r, c.deps.Printer.Sprintf(notice.ResultLoginNeeded), false, 0)
		return
	}
	c.submit(r, token, outcome)
}

func (c *Coordinator) submit(r *Round, token string, outcome Outcome) {
	epoch := r.Epoch
	sub := reward.Submission{IsCorrect: outcome.Correct, PrizeMoney: outcome.Prize}
	rewards := c.deps.Rewards
	history := c.deps.History
	timeout := c.opts.RequestTimeout
	now := c.deps.Now
	c.deps.Async.Go(func() func() {
		var result reward.Result
		err := errors.New("reward service not configured")
		if rewards != nil {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			var raw json.RawMessage
			result, raw, err = rewards.Submit(ctx, token, sub)
			cancel()
			outcome.Response = raw
		}
		if err == nil {
			outcome.Submitted = true
			outcome.Correct = result.IsCorrect
			outcome.Prize = result.PrizeMoney
		}
		outcome.FinishedAt = now()
		record(history, timeout, outcome)
		return func() { c.handleSubmission(epoch, result, err) }
	})
}

func (c *Coordinator) handleSubmission(epoch uint64, result reward.Result, err error) {
	if c.closed || c.round == nil || c.round.Epoch != epoch {
		log.Printf("quiz reward response ignored reason=stale")
		return
	}
	r := c.round
	switch {
	case errors.Is(err, reward.ErrUnauthorized):
		log.Printf("quiz reward rejected round_id=%s error=%v", r.ID, err)
		c.showResult(r, c.deps.Printer.Sprintf(notice.ResultLoginNeeded), false, 0)
	case err != nil:
		log.Printf("quiz reward failed round_id=%s error=%v", r.ID, err)
		c.showResult(r, c.deps.Printer.Sprintf(notice.ResultServerError), false, 0)
	case result.IsCorrect:
		c.showResult(r, c.deps.Printer.Sprintf(notice.ResultCorrect, result.PrizeMoney), true, result.PrizeMoney)
	default:
		c.showResult(r, c.deps.Printer.Sprintf(notice.ResultWrong), false, 0)
	}
}

func (c *Coordinator) showResult(r *Round, text string, correct bool, prize int) {
	c.deps.Bus.Publish(events.QuizResult{RoundID: r.ID, Text: text, Correct: correct, Prize: prize})
	c.deps.Bus.Publish(events.QuizClosed{RoundID: r.ID})
	if c.round == r {
		c.round = nil
	}
}

// LeftQuiz tears down every piece of local quiz state. Calling it with
// nothing active is safe.
func (c *Coordinator) LeftQuiz() {
	if c.closed {
		return
	}
	name := c.deps.Player.Name()
	removed := false
	if name != "" && c.IsParticipant(name) {
		delete(c.participants, name)
		removed = true
	}
	c.reenroll.Cancel()
	c.dropRound()
	c.deps.Player.FinishWork()
	c.setPhase(PhaseNoRound)
	if removed {
		c.notify(notice.QuizSelfLeft)
		log.Printf("quiz left name=%s", name)
	}
}

// PlayerLeftQuiz removes another participant. The name is resolved from
// the session id when the server omits it.
func (c *Coordinator) PlayerLeftQuiz(name, clientID string) {
	if c.closed {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" && clientID != "" && c.deps.Names != nil {
		name = c.deps.Names.NameOf(clientID)
	}
	if name == "" {
		log.Printf("quiz player left dropped reason=unknown_name client_id=%s", clientID)
		return
	}
	if !c.IsParticipant(name) {
		return
	}
	delete(c.participants, name)
	c.notify(notice.QuizPlayerLeft, name)
	log.Printf("quiz participant left name=%s participants=%d", name, len(c.participants))
}

// Close cancels all timers and drops any round. Later messages and
// in-flight reward responses are ignored.
func (c *Coordinator) Close() {
	if c.closed {
		return
	}
	c.reenroll.Cancel()
	c.dropRound()
	c.deps.Player.FinishWork()
	c.closed = true
	c.deps.Bus.UnsubscribeOwner(c)
}

func (c *Coordinator) dropRound() {
	if c.round == nil {
		return
	}
	id := c.round.ID
	c.round = nil
	c.epoch++
	c.deps.Bus.Publish(events.QuizClosed{RoundID: id})
}

func (c *Coordinator) token() (string, error) {
	if c.deps.Tokens == nil {
		return "", errors.New("no token source")
	}
	return c.deps.Tokens.Token()
}

func (c *Coordinator) persist(outcome Outcome) {
	history := c.deps.History
	if history == nil {
		return
	}
	outcome.FinishedAt = c.deps.Now()
	timeout := c.opts.RequestTimeout
	c.deps.Async.Go(func() func() {
		record(history, timeout, outcome)
		return nil
	})
}

func record(history Recorder, timeout time.Duration, outcome Outcome) {
	if history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := history.RecordOutcome(ctx, outcome); err != nil {
		log.Printf("quiz history write failed round_id=%s error=%v", outcome.RoundID, err)
	}
}

func (c *Coordinator) setPhase(next Phase) {
	if c.phase == next {
		return
	}
	prev := c.phase
	c.phase = next
	c.deps.Bus.Publish(events.QuizPhaseChanged{From: string(prev), To: string(next)})
}

func (c *Coordinator) notify(key string, args ...any) {
	c.deps.Bus.Publish(events.QuizNotice{Text: c.deps.Printer.Sprintf(key, args...), At: c.deps.Now()})
}

// inline runs work and its continuation on the caller's goroutine.
type inline struct{}

func (inline) Go(work func() func()) {
	if next := work(); next != nil {
		next()
	}
}
