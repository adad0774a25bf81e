package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meepleai/gateway/answercache"
	"github.com/meepleai/gateway/observe"
	"github.com/meepleai/gateway/stream"
)

// Sentinel errors for engine calls.
var (
	// ErrUnexpectedStatus is returned when the engine responds with a
	// non-200 status.
	ErrUnexpectedStatus = errors.New("engine: unexpected response status")

	// ErrMalformedFrame is returned when a response frame cannot be
	// decoded or arrives out of protocol order.
	ErrMalformedFrame = errors.New("engine: malformed response frame")
)

// maxFrameBytes caps one NDJSON frame. Citations dominate frame size.
const maxFrameBytes = 1 << 20

// generateBody is the request body for one generation call.
type generateBody struct {
	RequestID string `json:"request_id"`
	GameID    string `json:"game_id"`
	Question  string `json:"question"`
}

// frame is one NDJSON line of engine output.
type frame struct {
	Type      string                 `json:"type"`
	Citations []answercache.Citation `json:"citations,omitempty"`
	Text      string                 `json:"text,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

// Frame types on the wire. The first frame of every generation is
// citations; done and error are terminal.
const (
	frameCitations = "citations"
	frameToken     = "token"
	frameDone      = "done"
	frameError     = "error"
)

// ClientConfig wires an engine client.
type ClientConfig struct {
	// BaseURL is the engine's root URL, without a trailing slash. Required.
	BaseURL string

	// HTTPClient defaults to a client without a transport timeout; the
	// per-call deadline comes from the caller's context.
	HTTPClient *http.Client

	// Logger defaults to a no-op logger.
	Logger observe.Logger
}

// Client calls the reasoning engine over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  observe.Logger
}

var _ stream.Engine = (*Client)(nil)

// NewClient creates an engine client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("engine: base URL is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger.WithComponent("engine"),
	}, nil
}

// Generate starts one generation call.
//
// The citations frame is read before Generate returns; the remaining
// frames are relayed through the chunk channel by a goroutine that
// owns the response body. Cancelling ctx aborts the body read, which
// surfaces as an error chunk or a closed channel.
func (c *Client) Generate(ctx context.Context, req stream.Request) (*stream.Generation, error) {
	body, err := json.Marshal(generateBody{
		RequestID: req.RequestID,
		GameID:    req.GameID,
		Question:  req.Question,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/answers:stream", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("engine: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")
	httpReq.Header.Set("X-Request-ID", req.RequestID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("engine: call engine: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)

	first, err := readFrame(scanner)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	if first.Type != frameCitations {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: first frame is %q, want %q", ErrMalformedFrame, first.Type, frameCitations)
	}

	chunks := make(chan stream.Chunk)
	go c.relay(ctx, resp.Body, scanner, req.RequestID, chunks)

	return &stream.Generation{
		Citations: first.Citations,
		Chunks:    chunks,
	}, nil
}

// relay pumps token frames into the chunk channel until a terminal
// frame, a protocol violation, or cancellation.
func (c *Client) relay(ctx context.Context, body io.ReadCloser, scanner *bufio.Scanner, requestID string, chunks chan<- stream.Chunk) {
	defer close(chunks)
	defer body.Close()
	started := time.Now()

	for {
		f, err := readFrame(scanner)
		if err != nil {
			// A body read aborted by cancellation is not a protocol error.
			if ctx.Err() != nil {
				return
			}
			c.send(ctx, chunks, stream.Chunk{Err: err})
			return
		}

		switch f.Type {
		case frameToken:
			if !c.send(ctx, chunks, stream.Chunk{Text: f.Text}) {
				return
			}
		case frameDone:
			c.logger.Debug(ctx, "generation finished",
				observe.Field{Key: "request_id", Value: requestID},
				observe.Field{Key: "duration_ms", Value: time.Since(started).Milliseconds()})
			return
		case frameError:
			c.send(ctx, chunks, stream.Chunk{Err: fmt.Errorf("engine: remote failure: %s", f.Message)})
			return
		default:
			c.send(ctx, chunks, stream.Chunk{Err: fmt.Errorf("%w: type %q", ErrMalformedFrame, f.Type)})
			return
		}
	}
}

func (c *Client) send(ctx context.Context, chunks chan<- stream.Chunk, chunk stream.Chunk) bool {
	select {
	case <-ctx.Done():
		return false
	case chunks <- chunk:
		return true
	}
}

// readFrame decodes the next NDJSON line, skipping blank lines.
func readFrame(scanner *bufio.Scanner) (*frame, error) {
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var f frame
		if err := json.Unmarshal(line, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return &f, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("engine: read stream: %w", err)
	}
	return nil, fmt.Errorf("%w: stream ended before terminal frame", ErrMalformedFrame)
}
