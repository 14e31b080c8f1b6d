package room

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
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
	dialAttempts   = 12
	dialBackoff    = 180 * time.Millisecond
)

// Options selects which room to join. With neither RoomID nor Create set
// the server places the client in the public lobby room.
type Options struct {
	RoomID   string
	Password string
	Create   *CreateOptions

	// Post delivers callbacks onto the event loop. Required.
	Post func(func()) bool

	HandshakeTimeout time.Duration
}

type CreateOptions struct {
	Name        string
	Description string
	Password    string
	AutoDispose bool
}

type Client struct {
	conn      *websocket.Conn
	post      func(func()) bool
	sessionID string

	mu  sync.Mutex
	reg registry

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Dial connects to the room server and waits for the join acknowledgement.
func Dial(ctx context.Context, rawURL string, opts Options) (*Client, error) {
	if opts.Post == nil {
		return nil, errors.New("room dial: post func is required")
	}
	target, err := joinURL(rawURL, opts)
	if err != nil {
		return nil, err
	}
	conn, err := dialWithRetry(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("room dial: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sessionID, err := awaitJoined(conn, timeout)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	c := &Client{
		conn:      conn,
		post:      opts.Post,
		sessionID: sessionID,
		done:      make(chan struct{}),
	}
	go c.readLoop()
	log.Printf("room joined session_id=%s url=%s", sessionID, rawURL)
	return c, nil
}

func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) Send(msgType string, payload any) error {
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(clientEnvelope{Type: msgType, Payload: payload}); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	return nil
}

func (c *Client) Observe(collection string, obs Observer) func() {
	c.mu.Lock()
	id := c.reg.observe(collection, obs)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.reg.unobserve(collection, id)
		c.mu.Unlock()
	}
}

func (c *Client) OnMessage(msgType string, fn func(json.RawMessage)) func() {
	c.mu.Lock()
	id := c.reg.handle(msgType, fn)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.reg.unhandle(msgType, id)
		c.mu.Unlock()
	}
}

// Done is closed once the connection has ended for any reason.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err blocks until the connection ends and reports why. It is nil after
// Close or a normal close from the server.
func (c *Client) Err() error {
	<-c.done
	return c.err
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	c.finish(nil)
	return nil
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = nil
			}
			c.finish(err)
			return
		}
		var envelope serverEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			log.Printf("room message decode failed error=%v", err)
			continue
		}
		if !c.post(func() { c.dispatch(envelope) }) {
			c.finish(ErrNotConnected)
			return
		}
	}
}

func (c *Client) dispatch(envelope serverEnvelope) {
	if envelope.Type == MsgPatch {
		var patch Patch
		if err := json.Unmarshal(envelope.Payload, &patch); err != nil {
			log.Printf("room patch decode failed error=%v", err)
			return
		}
		c.mu.Lock()
		observers := c.reg.observersFor(patch.Collection)
		c.mu.Unlock()
		for _, obs := range observers {
			obs.Dispatch(patch)
		}
		return
	}
	c.mu.Lock()
	handlers := c.reg.handlersFor(envelope.Type)
	c.mu.Unlock()
	if len(handlers) == 0 {
		log.Printf("room message unhandled type=%s", envelope.Type)
		return
	}
	for _, fn := range handlers {
		fn(envelope.Payload)
	}
}

func (c *Client) finish(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		close(c.done)
		_ = c.conn.Close()
		if err != nil {
			log.Printf("room connection closed session_id=%s error=%v", c.sessionID, err)
			return
		}
		log.Printf("room connection closed session_id=%s", c.sessionID)
	})
}

func awaitJoined(conn *websocket.Conn, timeout time.Duration) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()
	for {
		var envelope serverEnvelope
		if err := conn.ReadJSON(&envelope); err != nil {
			return "", fmt.Errorf("await join: %w", err)
		}
		if envelope.Type != MsgJoined {
			continue
		}
		var joined JoinedPayload
		if err := json.Unmarshal(envelope.Payload, &joined); err != nil {
			return "", fmt.Errorf("decode join: %w", err)
		}
		if joined.Error != "" || joined.SessionID == "" {
			return "", fmt.Errorf("%w: %s", ErrJoinRejected, joined.Error)
		}
		return joined.SessionID, nil
	}
}

func joinURL(rawURL string, opts Options) (string, error) {
	if !strings.HasPrefix(rawURL, "ws://") && !strings.HasPrefix(rawURL, "wss://") {
		return "", fmt.Errorf("invalid ws url: %s", rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse room url: %w", err)
	}
	q := u.Query()
	switch {
	case opts.Create != nil:
		q.Set("create", "1")
		q.Set("name", opts.Create.Name)
		q.Set("description", opts.Create.Description)
		if opts.Create.Password != "" {
			q.Set("password", opts.Create.Password)
		}
		q.Set("autoDispose", strconv.FormatBool(opts.Create.AutoDispose))
	case opts.RoomID != "":
		q.Set("roomId", opts.RoomID)
		if opts.Password != "" {
			q.Set("password", opts.Password)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func dialWithRetry(ctx context.Context, wsURL string) (*websocket.Conn, error) {
	var lastErr error
	for attempt := 0; attempt < dialAttempts; attempt++ {
		dialer := websocket.DefaultDialer
		conn, _, err := dialer.DialContext(ctx, wsURL, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dialBackoff):
		}
	}
	return nil, lastErr
}
