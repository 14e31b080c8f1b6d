// Package notify listens on the account service's notification socket and
// hands tax alerts to the event loop.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	TypeTaxAlert = "tax-alert"

	notificationsPath = "/api/ws/notifications"
	maxMessageSize    = 1 << 16
)

var ErrNoToken = errors.New("notification token is required")

type Alert struct {
	Type      string
	Nickname  string
	TaxAmount float64
	At        time.Time
}

type message struct {
	Type      string          `json:"type"`
	Nickname  string          `json:"nickname"`
	TaxAmount json.RawMessage `json:"taxAmount"`
}

type Options struct {
	// Post delivers alert callbacks onto the event loop. Required.
	Post func(func()) bool
	Now  func() time.Time
}

type Listener struct {
	conn *websocket.Conn
	post func(func()) bool
	now  func() time.Time

	mu       sync.Mutex
	nextID   uint64
	handlers map[uint64]func(Alert)

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Dial opens the notification socket for token. baseURL is the service
// root; http and https schemes are switched to ws and wss.
func Dial(ctx context.Context, baseURL, token string, opts Options) (*Listener, error) {
	if opts.Post == nil {
		return nil, errors.New("notify dial: post func is required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoToken
	}
	target, err := socketURL(baseURL, token)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("notify dial: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	l := &Listener{
		conn:     conn,
		post:     opts.Post,
		now:      opts.Now,
		handlers: make(map[uint64]func(Alert)),
		done:     make(chan struct{}),
	}
	go l.readLoop()
	log.Printf("notifications connected host=%s", conn.RemoteAddr())
	return l, nil
}

// OnAlert registers fn for every valid tax alert. It runs on the loop.
func (l *Listener) OnAlert(fn func(Alert)) func() {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.handlers[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.handlers, id)
		l.mu.Unlock()
	}
}

func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Err blocks until the socket ends and reports why.
func (l *Listener) Err() error {
	<-l.done
	return l.err
}

func (l *Listener) Close() error {
	_ = l.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	l.finish(nil)
	return nil
}

func (l *Listener) readLoop() {
	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = nil
			}
			l.finish(err)
			return
		}
		alert, err := parseAlert(data)
		if err != nil {
			log.Printf("notification dropped error=%v", err)
			continue
		}
		alert.At = l.now()
		if !l.post(func() { l.dispatch(alert) }) {
			l.finish(errors.New("event loop closed"))
			return
		}
	}
}

func (l *Listener) dispatch(alert Alert) {
	l.mu.Lock()
	handlers := make([]func(Alert), 0, len(l.handlers))
	for _, fn := range l.handlers {
		handlers = append(handlers, fn)
	}
	l.mu.Unlock()
	for _, fn := range handlers {
		fn(alert)
	}
}

func (l *Listener) finish(err error) {
	l.closeOnce.Do(func() {
		l.err = err
		close(l.done)
		_ = l.conn.Close()
		if err != nil {
			log.Printf("notifications closed error=%v", err)
			return
		}
		log.Printf("notifications closed")
	})
}

// parseAlert accepts tax alerts with a nickname and a non-zero amount. The
// amount may arrive as a number or a numeric string.
func parseAlert(data []byte) (Alert, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Alert{}, fmt.Errorf("decode: %w", err)
	}
	if msg.Type != TypeTaxAlert {
		return Alert{}, fmt.Errorf("unsupported type %q", msg.Type)
	}
	nickname := strings.TrimSpace(msg.Nickname)
	if nickname == "" {
		return Alert{}, errors.New("missing nickname")
	}
	amount, err := parseAmount(msg.TaxAmount)
	if err != nil {
		return Alert{}, err
	}
	if amount == 0 {
		return Alert{}, errors.New("missing tax amount")
	}
	return Alert{Type: msg.Type, Nickname: nickname, TaxAmount: amount}, nil
}

func parseAmount(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, fmt.Errorf("tax amount: %w", err)
	}
	number, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("tax amount %q: %w", text, err)
	}
	return number, nil
}

func socketURL(baseURL, token string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse notification url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid notification url: %s", baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + notificationsPath
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
