// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/jeranaias/quill-tui/internal/auth"
	"github.com/jeranaias/quill-tui/internal/protocol"
	"github.com/jeranaias/quill-tui/internal/transcript"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrType categorizes client errors.
type ErrType int

const (
	ErrTypeConnection ErrType = iota
	ErrTypeStatus
	ErrTypeInvalidResponse
)

// ClientError wraps transport failures with a category.
type ClientError struct {
	Type    ErrType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrUnavailable indicates the backend could not be reached at all.
var ErrUnavailable = errors.New("chat backend unavailable")

// =============================================================================
// CHAT CLIENT
// =============================================================================

// readBufSize is the chunk size for draining the stream body.
const readBufSize = 4096

// Client talks to the chat backend. Requests carry a bearer token when
// the auth provider holds one and go out bare otherwise.
type Client struct {
	baseURL    string
	streamPath string
	chatPath   string
	auth       auth.Provider
	// httpClient serves non-streaming requests; streams build their own
	// timeout-free client because the context bounds them instead. Both
	// share the transport so the connect timeout applies everywhere.
	httpClient *http.Client
	transport  *http.Transport
}

// ClientConfig carries the endpoint settings the client needs.
type ClientConfig struct {
	BaseURL    string
	StreamPath string
	ChatPath   string

	// RequestTimeout bounds a complete non-streaming exchange.
	RequestTimeout time.Duration

	// ConnectTimeout bounds dialing the backend. Zero means no limit.
	ConnectTimeout time.Duration
}

// NewClient creates a chat client. provider may be nil for
// unauthenticated use.
func NewClient(cfg ClientConfig, provider auth.Provider) *Client {
	if provider == nil {
		provider = auth.NullProvider{}
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		streamPath: cfg.StreamPath,
		chatPath:   cfg.ChatPath,
		auth:       provider,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout, Transport: transport},
		transport:  transport,
	}
}

// chatRequest is the wire shape of an outgoing message.
type chatRequest struct {
	Message string                    `json:"message"`
	History []transcript.HistoryEntry `json:"conversation_history"`
}

// newRequest builds a POST with JSON body and optional bearer token.
func (c *Client) newRequest(ctx context.Context, path, message string, history []transcript.HistoryEntry) (*http.Request, error) {
	body, err := json.Marshal(chatRequest{Message: message, History: history})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	if token, ok := c.auth.AccessToken(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// Stream sends a message on the streaming endpoint and invokes fn for
// every decoded event, in arrival order, from the calling goroutine.
// Returns when the stream ends, errors, or ctx is cancelled.
func (c *Client) Stream(ctx context.Context, message string, history []transcript.HistoryEntry, fn func(protocol.Event)) error {
	req, err := c.newRequest(ctx, c.streamPath, message, history)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// Streams are bounded by ctx, not a client timeout.
	streamClient := &http.Client{Transport: c.transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &ClientError{Type: ErrTypeStatus, Message: "stream request failed: " + resp.Status}
	}

	parser := protocol.NewParser()
	buf := make([]byte, readBufSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			events, done := parser.Feed(buf[:n])
			for _, ev := range events {
				fn(ev)
			}
			if done {
				logStreamEnd(parser)
				return nil
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				for _, ev := range parser.Close() {
					fn(ev)
				}
				logStreamEnd(parser)
				return nil
			}
			if errors.Is(readErr, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			return &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: readErr}
		}
	}
}

// logStreamEnd records protocol anomalies once the stream is over: a
// body that closed without the [DONE] sentinel, and any records the
// parser had to skip along the way.
func logStreamEnd(p *protocol.Parser) {
	if !p.Terminated() {
		log.Printf("CLIENT | stream closed without [DONE] sentinel")
	}
	if n := p.Dropped(); n > 0 {
		log.Printf("CLIENT | stream dropped %d malformed records", n)
	}
}

// Chat sends a message on the non-streaming fallback endpoint and
// returns the complete reply text.
func (c *Client) Chat(ctx context.Context, message string, history []transcript.HistoryEntry) (string, error) {
	req, err := c.newRequest(ctx, c.chatPath, message, history)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &ClientError{Type: ErrTypeStatus, Message: "chat request failed: " + resp.Status}
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return result.Response, nil
}
