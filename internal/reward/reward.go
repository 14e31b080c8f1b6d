// Package reward submits quiz answers to the account service that pays
// out prize money.
package reward

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrUnauthorized = errors.New("reward submission unauthorized")
	ErrBadResponse  = errors.New("reward service returned an unexpected response")
)

type Submission struct {
	IsCorrect  bool `json:"isCorrect"`
	PrizeMoney int  `json:"prizeMoney"`
}

// Result is the service's verdict, which is what the player is shown.
type Result struct {
	IsCorrect  bool   `json:"isCorrect"`
	PrizeMoney int    `json:"prizeMoney"`
	Message    string `json:"-"`
}

type response struct {
	Data   *Result `json:"data"`
	Result string  `json:"result"`
}

type Client struct {
	url    string
	http   *http.Client
	tracer trace.Tracer
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		tracer: otel.Tracer("office-quiz/reward"),
	}
}

// Submit posts the answer with the bearer token. Raw is the response body
// so callers can keep it alongside the result.
func (c *Client) Submit(ctx context.Context, token string, sub Submission) (Result, json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "reward.submit", trace.WithAttributes(
		attribute.Bool("quiz.correct", sub.IsCorrect),
		attribute.Int("quiz.prize", sub.PrizeMoney),
	))
	defer span.End()

	result, raw, err := c.submit(ctx, token, sub)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, raw, err
}

func (c *Client) submit(ctx context.Context, token string, sub Submission) (Result, json.RawMessage, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return Result{}, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, nil, fmt.Errorf("build reward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, nil, fmt.Errorf("reward request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Result{}, nil, fmt.Errorf("read reward response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{}, raw, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Result{}, raw, fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}
	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Result{}, raw, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if decoded.Data == nil {
		return Result{}, raw, fmt.Errorf("%w: missing data", ErrBadResponse)
	}
	result := *decoded.Data
	result.Message = decoded.Result
	return result, raw, nil
}
