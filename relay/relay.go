// Package relay implements the streaming relay server: it accepts coaching
// requests from browser or CLI clients, opens one upstream chat-completion
// stream per request, and re-emits the upstream's incremental deltas as a
// simplified, stable SSE protocol. Sessions are independent; each owns its
// upstream connection, frame buffer, and decoder state exclusively.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adaptiveopslab/coachrelay/pkg/eventstream"
	"github.com/adaptiveopslab/coachrelay/pkg/llm"
	"github.com/adaptiveopslab/coachrelay/pkg/sse"
	"github.com/adaptiveopslab/coachrelay/relay/worker"
)

// StreamPath is the single streaming endpoint the relay serves.
const StreamPath = "/api/coach/stream"

// coachSystemPrompt is the fixed system instruction for every upstream
// request. Prompt construction beyond this template is not the relay's job.
const coachSystemPrompt = "You are an operations coach for the Adaptive " +
	"Operations Lab. Give concise, practical guidance on the scenario the " +
	"student describes. Do not reveal hidden scenario parameters or scoring."

// upstreamErrorLimit bounds how much of a failed upstream body is read for
// the diagnostic forwarded to the client.
const upstreamErrorLimit = 4096

// Request is the inbound coaching request body. Both fields are free-form
// context; the relay folds them into one constructed user message.
type Request struct {
	Scenario string `json:"scenario"`
	Notes    string `json:"notes,omitempty"`
}

// Relay is the streaming relay server.
type Relay struct {
	config     Config
	logger     *zap.Logger
	httpClient *http.Client
	server     *fiber.App
	workerPool *worker.Pool
	settings   atomic.Pointer[Settings]
}

// New creates a new Relay. The publisher receives session-completed
// telemetry through the async worker pool; pass a nop publisher to disable.
func New(config Config, publisher eventstream.Publisher, logger *zap.Logger) (*Relay, error) {
	if config.UpstreamURL == "" {
		return nil, errors.New("upstream URL is required")
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Enable streaming
		StreamRequestBody: true,
	})

	wp, err := worker.NewPool(&worker.Config{
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	r := &Relay{
		config:     config,
		logger:     logger,
		workerPool: wp,
		server:     app,
		httpClient: &http.Client{
			// No overall timeout: completions stream for as long as the
			// model generates. Stalls are caught by the per-read idle
			// watchdog instead.
		},
	}
	r.ApplySettings(config.Settings)

	app.Get("/healthz", r.handleHealth)
	app.All(StreamPath, r.handleStream)

	return r, nil
}

// ApplySettings atomically swaps the hot-reloadable session settings.
// In-flight sessions keep the settings they started with.
func (r *Relay) ApplySettings(s Settings) {
	s = s.withDefaults()
	r.settings.Store(&s)
}

// Run starts the relay server on the configured listening address.
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		zap.String("listen", r.config.ListenAddr),
		zap.String("upstream", r.config.UpstreamURL),
	)

	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logger.Info("starting relay server",
		zap.String("listen", listener.Addr().String()),
		zap.String("upstream", r.config.UpstreamURL),
	)

	return r.server.Listener(listener)
}

// Close gracefully shuts down the server and drains the worker pool.
func (r *Relay) Close() error {
	err := r.server.Shutdown()
	r.workerPool.Close()
	return err
}

func (r *Relay) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "service": "coachrelay"})
}

// handleStream validates the inbound request, opens the upstream stream,
// and hands the two connections to a session goroutine. The event-stream
// channel is opened eagerly, so every failure mode after routing is
// delivered as a terminal error frame on the stream body; only the
// wrong-verb case changes the HTTP status.
func (r *Relay) handleStream(c *fiber.Ctx) error {
	setStreamHeaders(c)

	if c.Method() != fiber.MethodPost {
		c.Status(fiber.StatusMethodNotAllowed)
		return sendErrorFrame(c, ErrMethodNotAllowed.Error())
	}

	if c.Get(fiber.HeaderAuthorization) == "" {
		r.logger.Warn("rejecting request without credential")
		return sendErrorFrame(c, ErrMissingCredential.Error())
	}

	if r.config.APIKey == "" {
		r.logger.Error("upstream api key not configured")
		return sendErrorFrame(c, ErrUpstreamKeyMissing.Error())
	}

	var req Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return sendErrorFrame(c, fmt.Sprintf("invalid request body: %v", err))
	}

	settings := *r.settings.Load()
	sessionID := uuid.NewString()

	// Use context.Background() instead of c.Context() because fasthttp
	// recycles its RequestCtx after the handler returns, but the session
	// goroutine runs on and needs the upstream connection to stay open.
	// Client disconnects surface as pipe write failures instead.
	ctx, cancel := context.WithCancel(context.Background())

	resp, err := r.openUpstream(ctx, req, settings)
	if err != nil {
		cancel()
		r.logger.Error("upstream stream failed to open",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return sendErrorFrame(c, err.Error())
	}

	s := &session{
		id:       sessionID,
		model:    settings.Model,
		stream:   newStream(settings.MaxFrameBuffer),
		settings: settings,
		cancel:   cancel,
		logger:   r.logger,
		pool:     r.workerPool,
	}

	r.logger.Debug("session opened",
		zap.String("session_id", sessionID),
		zap.String("model", settings.Model),
	)

	// io.Pipe gives direct backpressure: the session's writes block until
	// fasthttp flushes the previous chunk to the client socket, which in
	// turn paces how fast new upstream reads are issued.
	pr, pw := io.Pipe()
	go s.run(resp.Body, pw)

	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// openUpstream builds and issues the upstream streaming request. Any
// failure here means the stream never opened: the caller reports exactly
// one error event and no chunks.
func (r *Relay) openUpstream(ctx context.Context, req Request, settings Settings) (*http.Response, error) {
	chatReq := llm.ChatRequest{
		Model: settings.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: coachSystemPrompt},
			{Role: llm.RoleUser, Content: buildUserMessage(req)},
		},
		Stream: true,
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("encoding upstream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.UpstreamURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+r.config.APIKey)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("contacting upstream: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		diag, readErr := io.ReadAll(io.LimitReader(resp.Body, upstreamErrorLimit))
		resp.Body.Close()
		if readErr != nil || len(bytes.TrimSpace(diag)) == 0 {
			return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, upstreamDiagnostic(diag))
	}

	return resp, nil
}

// upstreamDiagnostic extracts the provider's error message from a failed
// response body, falling back to the raw body when it is not the standard
// error envelope.
func upstreamDiagnostic(body []byte) string {
	var errResp llm.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message() != "" {
		return errResp.Message()
	}
	return string(bytes.TrimSpace(body))
}

// buildUserMessage folds the free-form request fields into the single
// constructed user message.
func buildUserMessage(req Request) string {
	if req.Notes == "" {
		return fmt.Sprintf("Scenario: %s", req.Scenario)
	}
	return fmt.Sprintf("Scenario: %s\n\nNotes: %s", req.Scenario, req.Notes)
}

func setStreamHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
}

// sendErrorFrame writes a single terminal error event as the whole
// response body, for sessions that fail before an upstream stream opened.
func sendErrorFrame(c *fiber.Ctx, message string) error {
	var buf bytes.Buffer
	if err := sse.NewWriter(&buf).WriteEvent(Error(message).Wire()); err != nil {
		return err
	}
	return c.SendString(buf.String())
}
