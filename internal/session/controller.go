// Package session implements the top-level conversation state machine. A
// Controller drives single turns from user input to a settled transcript,
// routing stream callbacks through the demultiplexer and assembler,
// honoring mid-turn cancellation, and degrading to offline mode when the
// transport fails.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/avasile/agentwire/internal/assemble"
	"github.com/avasile/agentwire/internal/demux"
	"github.com/avasile/agentwire/internal/domain"
	"github.com/avasile/agentwire/internal/interact"
	"github.com/avasile/agentwire/internal/ports"
	"github.com/avasile/agentwire/internal/turn"
)

const (
	defaultMaxInputLen = 10000
	persistTimeout     = 5 * time.Second
	transientLabel     = "Processing your request"
)

// TokenCounter estimates the token cost of user input for budget checks.
type TokenCounter interface {
	Count(text string) (int, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithStore attaches the persistence bridge.
func WithStore(store ports.TranscriptStore) Option {
	return func(c *Controller) {
		c.store = store
	}
}

// WithPublisher attaches the session event publisher.
func WithPublisher(pub ports.EventPublisher) Option {
	return func(c *Controller) {
		c.events = pub
	}
}

// WithFeedbackSink attaches the message feedback sink.
func WithFeedbackSink(sink ports.FeedbackSink) Option {
	return func(c *Controller) {
		c.feedback = sink
	}
}

// WithSystemPrompt injects a leading system message into turn histories
// that don't already carry one.
func WithSystemPrompt(prompt string) Option {
	return func(c *Controller) {
		c.systemPrompt = prompt
	}
}

// WithTurnTimeout bounds each turn. Zero disables the bound.
func WithTurnTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.turnTimeout = d
	}
}

// WithTurnOptions sets per-turn transport tuning.
func WithTurnOptions(opts ports.TurnOptions) Option {
	return func(c *Controller) {
		c.turnOpts = opts
	}
}

// WithStreaming toggles streaming turns. When disabled the controller
// drives turns through the transport's non-streaming call and applies the
// resolved reply as a single chunk followed by the finish.
func WithStreaming(streaming bool) Option {
	return func(c *Controller) {
		c.streaming = streaming
	}
}

// WithMaxInputLength overrides the input length policy.
func WithMaxInputLength(n int) Option {
	return func(c *Controller) {
		c.maxInputLen = n
	}
}

// WithTokenBudget rejects input whose estimated token count exceeds budget.
func WithTokenBudget(counter TokenCounter, budget int) Option {
	return func(c *Controller) {
		c.tokenCounter = counter
		c.tokenBudget = budget
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithIDGenerator overrides message id generation.
func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) {
		c.newID = newID
	}
}

// activeTurn is the handle for the single in-flight turn: its cancellation
// token and the assembler owning the placeholder message.
type activeTurn struct {
	token *turn.Token
	asm   *assemble.Assembler
	span  trace.Span
}

// Controller is the session state machine. All transcript mutation happens
// under mu; transport callbacks are applied one at a time as atomic state
// transitions.
type Controller struct {
	id      string
	agentID string

	transport    ports.TransportClient
	store        ports.TranscriptStore
	events       ports.EventPublisher
	feedback     ports.FeedbackSink
	prompts      *interact.Handler
	logger       *slog.Logger
	tracer       trace.Tracer
	systemPrompt string
	turnTimeout  time.Duration
	turnOpts     ports.TurnOptions
	streaming    bool
	maxInputLen  int
	tokenCounter TokenCounter
	tokenBudget  int
	now          func() time.Time
	newID        func() string

	mu         sync.Mutex
	status     domain.SessionStatus
	messages   []*domain.Message
	active     *activeTurn
	persistSeq uint64

	persistMu    sync.Mutex
	persistedSeq uint64
}

// New creates a session controller. An empty sessionID gets a locally
// generated fallback id.
func New(sessionID, agentID string, transport ports.TransportClient, opts ...Option) (*Controller, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport client required")
	}
	if sessionID == "" {
		sessionID = domain.NewFallbackSessionID()
	}
	c := &Controller{
		id:          sessionID,
		agentID:     agentID,
		transport:   transport,
		prompts:     interact.New(),
		logger:      slog.Default(),
		tracer:      otel.Tracer("agentwire/session"),
		status:      domain.SessionIdle,
		streaming:   true,
		maxInputLen: defaultMaxInputLen,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.prompts = interact.New(interact.WithClock(c.now), interact.WithIDGenerator(c.newID))
	c.turnOpts.SessionID = sessionID
	return c, nil
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// Status returns the current lifecycle state.
func (c *Controller) Status() domain.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Messages returns a deep copy of the transcript.
func (c *Controller) Messages() []*domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CloneMessages(c.messages)
}

// LoadTranscript restores the transcript from the persistence bridge. A
// load failure leaves the session empty and usable.
func (c *Controller) LoadTranscript(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	msgs, err := c.store.Load(ctx, c.id)
	if err != nil {
		c.logger.Warn("transcript load failed",
			slog.String("session_id", c.id),
			slog.String("error", err.Error()))
		return domain.WrapError(domain.ErrorKindPersistence, "load transcript", err)
	}
	c.mu.Lock()
	c.messages = msgs
	c.mu.Unlock()
	return nil
}

// Send starts a new turn for the given user input. It rejects input while
// another turn is in flight; callers cancel first. While offline it never
// touches the transport and synthesizes a local response instead.
func (c *Controller) Send(ctx context.Context, text string) error {
	sanitized, err := c.validateInput(text)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		return domain.NewError(domain.ErrorKindValidation,
			"a turn is already in flight; cancel it before sending again")
	}

	if c.status == domain.SessionOffline {
		c.appendLocked(c.userMessage(sanitized))
		reply := &domain.Message{
			ID:             c.newID(),
			Role:           domain.RoleAssistant,
			Content:        turn.OfflineResponse(sanitized),
			Timestamp:      c.now(),
			ThinkingStatus: domain.ThinkingCompleted,
			Offline:        true,
		}
		c.appendLocked(reply)
		job := c.snapshotLocked()
		c.mu.Unlock()
		c.persist(job)
		return nil
	}

	c.setStatusLocked(domain.SessionSending)
	c.appendLocked(c.userMessage(sanitized))
	job := c.snapshotLocked()
	c.startTurnLocked(false)
	c.mu.Unlock()

	c.persist(job)
	return nil
}

// Cancel signals the active turn's token, seals the placeholder with
// whatever partial content it holds, and settles back to idle. Partial
// output is never discarded. Without an active turn it is a no-op.
func (c *Controller) Cancel(ctx context.Context) {
	c.mu.Lock()
	active := c.active
	if active == nil {
		c.mu.Unlock()
		return
	}
	c.setStatusLocked(domain.SessionAborting)
	active.token.Cancel()
	c.sealLocked(active, "turn cancelled")
	c.active = nil
	c.setStatusLocked(domain.SessionIdle)
	job := c.snapshotLocked()
	c.mu.Unlock()

	active.endSpan("aborted")
	c.persist(job)
}

// ResolveInteraction answers the interactive prompt on the given message
// and resumes the turn. The resumed turn carries a history of exactly the
// one continuation message; the agent holds the flow state server-side.
func (c *Controller) ResolveInteraction(ctx context.Context, messageID, value, key string) error {
	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		return domain.NewError(domain.ErrorKindValidation,
			"a turn is already in flight; cancel it before answering")
	}
	if c.status == domain.SessionOffline {
		c.mu.Unlock()
		return domain.NewError(domain.ErrorKindValidation,
			"cannot answer an interactive prompt while offline")
	}

	msg := c.findLocked(messageID)
	if msg == nil {
		c.mu.Unlock()
		return domain.NewError(domain.ErrorKindValidation,
			fmt.Sprintf("message %s not found", messageID))
	}
	continuation, err := c.prompts.Resolve(msg, value, key)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	c.setStatusLocked(domain.SessionSending)
	c.appendLocked(continuation)
	job := c.snapshotLocked()
	c.startTurnWithHistoryLocked([]*domain.Message{continuation.Clone()}, true)
	c.mu.Unlock()

	c.persist(job)
	return nil
}

// Regenerate truncates the transcript to the chosen user message, dropping
// everything after it, and re-runs the turn with the truncated history.
func (c *Controller) Regenerate(ctx context.Context, userMessageID string) error {
	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		return domain.NewError(domain.ErrorKindValidation,
			"a turn is already in flight; cancel it before regenerating")
	}
	if c.status == domain.SessionOffline {
		c.mu.Unlock()
		return domain.NewError(domain.ErrorKindValidation,
			"cannot regenerate while offline")
	}

	idx := -1
	for i, m := range c.messages {
		if m.ID == userMessageID && m.Role == domain.RoleUser {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return domain.NewError(domain.ErrorKindValidation,
			fmt.Sprintf("user message %s not found", userMessageID))
	}

	c.messages = c.messages[:idx+1]
	c.setStatusLocked(domain.SessionSending)
	job := c.snapshotLocked()
	c.startTurnLocked(false)
	c.mu.Unlock()

	c.persist(job)
	return nil
}

// EditMessage rewrites the content of a settled message. This is an
// explicit external action, not part of the streaming engine.
func (c *Controller) EditMessage(ctx context.Context, messageID, content string) error {
	sanitized, err := c.validateInput(content)
	if err != nil {
		return err
	}
	c.mu.Lock()
	msg := c.findLocked(messageID)
	if msg == nil || msg.InFlight() {
		c.mu.Unlock()
		return domain.NewError(domain.ErrorKindValidation,
			fmt.Sprintf("message %s not found or still in flight", messageID))
	}
	msg.Content = sanitized
	job := c.snapshotLocked()
	c.mu.Unlock()
	c.persist(job)
	return nil
}

// DeleteMessage removes a settled message from the transcript.
func (c *Controller) DeleteMessage(ctx context.Context, messageID string) error {
	c.mu.Lock()
	idx := -1
	for i, m := range c.messages {
		if m.ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 || c.messages[idx].InFlight() {
		c.mu.Unlock()
		return domain.NewError(domain.ErrorKindValidation,
			fmt.Sprintf("message %s not found or still in flight", messageID))
	}
	c.messages = append(c.messages[:idx], c.messages[idx+1:]...)
	job := c.snapshotLocked()
	c.mu.Unlock()
	c.persist(job)
	return nil
}

// SubmitFeedback forwards a user verdict on an assistant message to the
// feedback sink, fire-and-forget.
func (c *Controller) SubmitFeedback(ctx context.Context, messageID, userID string, positive bool) {
	if c.feedback == nil {
		return
	}
	fb := &ports.Feedback{
		AppID:     c.agentID,
		SessionID: c.id,
		MessageID: messageID,
		UserID:    userID,
		Positive:  positive,
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := c.feedback.Submit(sendCtx, fb); err != nil {
			c.logger.Warn("feedback submit failed",
				slog.String("message_id", messageID),
				slog.String("error", err.Error()))
		}
	}()
}

// Online transitions the session out of offline mode. Only the external
// connectivity probe calls this; the engine never guesses its way back.
func (c *Controller) Online() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == domain.SessionOffline {
		c.setStatusLocked(domain.SessionIdle)
	}
}

// IsOffline reports whether the session is in degraded local-only mode.
func (c *Controller) IsOffline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == domain.SessionOffline
}

// Tuning carries the session policy a host may adjust while the session
// runs, typically on a config reload. Values apply as given; zero
// disables the corresponding bound.
type Tuning struct {
	SystemPrompt   string
	TurnTimeout    time.Duration
	MaxInputLength int
	Temperature    float64
	MaxTokens      int
}

// ApplyTuning replaces the live-adjustable policy. The active turn keeps
// the tuning it started with; the next turn picks up the new values.
func (c *Controller) ApplyTuning(t Tuning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systemPrompt = t.SystemPrompt
	c.turnTimeout = t.TurnTimeout
	c.maxInputLen = t.MaxInputLength
	c.turnOpts.Temperature = t.Temperature
	c.turnOpts.MaxTokens = t.MaxTokens
}

// validateInput enforces the send-path input policy before any state
// mutation. Policy fields are snapshotted under the lock so a concurrent
// tuning change cannot tear the check.
func (c *Controller) validateInput(text string) (string, error) {
	c.mu.Lock()
	maxLen, counter, budget := c.maxInputLen, c.tokenCounter, c.tokenBudget
	c.mu.Unlock()

	sanitized := strings.TrimSpace(text)
	if sanitized == "" {
		return "", domain.NewError(domain.ErrorKindValidation, "message content must not be empty")
	}
	if maxLen > 0 && len([]rune(sanitized)) > maxLen {
		return "", domain.NewError(domain.ErrorKindValidation,
			fmt.Sprintf("message content exceeds %d characters", maxLen))
	}
	if counter != nil && budget > 0 {
		n, err := counter.Count(sanitized)
		if err != nil {
			c.logger.Warn("token count failed", slog.String("error", err.Error()))
		} else if n > budget {
			return "", domain.NewError(domain.ErrorKindValidation,
				fmt.Sprintf("message costs %d tokens, budget is %d", n, budget))
		}
	}
	return sanitized, nil
}

func (c *Controller) userMessage(content string) *domain.Message {
	return &domain.Message{
		ID:        c.newID(),
		Role:      domain.RoleUser,
		Content:   content,
		Timestamp: c.now(),
	}
}

// historyLocked formats the transcript for the transport, injecting the
// configured system prompt when none is present.
func (c *Controller) historyLocked() []*domain.Message {
	history := make([]*domain.Message, 0, len(c.messages)+1)
	hasSystem := false
	for _, m := range c.messages {
		if m.InFlight() {
			continue
		}
		if m.Role == domain.RoleSystem {
			hasSystem = true
		}
		history = append(history, m.Clone())
	}
	if c.systemPrompt != "" && !hasSystem {
		history = append([]*domain.Message{{
			ID:        "system",
			Role:      domain.RoleSystem,
			Content:   c.systemPrompt,
			Timestamp: c.now(),
		}}, history...)
	}
	return history
}

// startTurnLocked launches a turn whose history is the current transcript.
func (c *Controller) startTurnLocked(resumed bool) {
	c.startTurnWithHistoryLocked(c.historyLocked(), resumed)
}

func (c *Controller) startTurnWithHistoryLocked(history []*domain.Message, resumed bool) {
	token := turn.NewToken(context.Background(), c.turnTimeout)
	asm := assemble.New(&transcriptSink{c: c}, c.logger,
		assemble.WithClock(c.now), assemble.WithIDGenerator(c.newID))

	_, span := c.tracer.Start(context.Background(), "session.turn",
		trace.WithAttributes(
			attribute.String("session.id", c.id),
			attribute.Bool("turn.resumed", resumed),
		))

	active := &activeTurn{token: token, asm: asm, span: span}
	c.active = active
	c.setStatusLocked(domain.SessionStreaming)
	asm.StartTransient(transientLabel)

	// Copy the options under the lock; a concurrent tuning change must not
	// race the transport goroutine.
	opts := c.turnOpts

	go c.watchExpiry(active)

	if !c.streaming {
		go c.runChatTurn(active, history, opts)
		return
	}

	go c.transport.StreamTurn(token.Context(), history, opts, ports.TurnCallbacks{
		OnStart:        func() { c.handleStart(active) },
		OnChunk:        func(text string) { c.handleChunk(active, text) },
		OnIntermediate: func(eventType string, payload json.RawMessage) { c.handleIntermediate(active, eventType, payload) },
		OnError:        func(err error) { c.handleError(active, err) },
		OnFinish:       func() { c.handleFinish(active) },
	})
}

// runChatTurn drives a turn through the transport's non-streaming call.
// The resolved reply lands as one chunk followed by the finish, so the
// placeholder lifecycle is identical to a streamed turn.
func (c *Controller) runChatTurn(active *activeTurn, history []*domain.Message, opts ports.TurnOptions) {
	reply, err := c.transport.Chat(active.token.Context(), history, opts)
	if err != nil {
		c.handleError(active, err)
		return
	}
	c.handleStart(active)
	c.handleChunk(active, reply)
	c.handleFinish(active)
}

// watchExpiry settles the session when a turn's token expires before any
// terminal callback arrives. The transport suppresses callbacks once the
// token context is done, so expiry is handled here like a cancel: partial
// content is sealed and the session returns to idle.
func (c *Controller) watchExpiry(active *activeTurn) {
	<-active.token.Context().Done()

	c.mu.Lock()
	if c.active != active {
		// The turn already settled through a terminal callback or a cancel.
		c.mu.Unlock()
		return
	}
	c.logger.Warn("turn expired without a terminal event",
		slog.String("session_id", c.id))
	c.sealLocked(active, "turn timed out")
	c.active = nil
	c.setStatusLocked(domain.SessionIdle)
	job := c.snapshotLocked()
	c.mu.Unlock()

	active.endSpan("timeout")
	c.persist(job)
}

// accept reports whether a callback for the given turn may still be
// applied. Callbacks for superseded turns or signalled tokens are dropped
// unconditionally, including late chunks after a cancel.
func (c *Controller) acceptLocked(active *activeTurn) bool {
	return c.active == active && !active.token.Signalled()
}

func (c *Controller) handleStart(active *activeTurn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.acceptLocked(active) {
		return
	}
	active.asm.OnStart()
}

func (c *Controller) handleChunk(active *activeTurn, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.acceptLocked(active) {
		return
	}
	active.asm.ApplyChunk(text)
	if c.status == domain.SessionAwaitingInteraction {
		c.setStatusLocked(domain.SessionStreaming)
	}
}

func (c *Controller) handleIntermediate(active *activeTurn, eventType string, payload json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.acceptLocked(active) {
		return
	}

	ev, err := demux.Classify(eventType, payload)
	if err != nil {
		// Malformed interactive payloads are dropped; the turn continues.
		c.logger.Warn("interactive payload rejected",
			slog.String("session_id", c.id),
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}

	if ev.ResponseID != "" {
		active.asm.CaptureResponseID(ev.ResponseID)
	}

	switch ev.Category {
	case demux.CategoryStep:
		active.asm.ApplyStep(ev.Step, ev.ThinkingSeen, ev.ThinkingDone)
	case demux.CategoryInteractive:
		active.asm.AttachPrompt(ev.Prompt)
		c.setStatusLocked(domain.SessionAwaitingInteraction)
		c.publish(ports.EventPromptReady, "")
	}
}

func (c *Controller) handleFinish(active *activeTurn) {
	c.mu.Lock()
	if !c.acceptLocked(active) {
		c.mu.Unlock()
		return
	}
	c.sealLocked(active, "turn finished")
	c.active = nil
	c.setStatusLocked(domain.SessionIdle)
	job := c.snapshotLocked()
	c.mu.Unlock()

	active.token.Cancel()
	active.endSpan("finished")
	c.persist(job)
}

// handleError applies the fallback policy: exactly one assistant message
// with the fixed apology payload, and a transition to offline mode.
func (c *Controller) handleError(active *activeTurn, err error) {
	c.mu.Lock()
	if !c.acceptLocked(active) {
		c.mu.Unlock()
		return
	}
	c.logger.Error("turn failed, degrading to offline mode",
		slog.String("session_id", c.id),
		slog.String("error", err.Error()))

	id, sealed := active.asm.Fallback(turn.Apology)
	if sealed {
		c.publish(ports.EventMessageSealed, id)
	}
	c.active = nil
	c.setStatusLocked(domain.SessionOffline)
	job := c.snapshotLocked()
	c.mu.Unlock()

	active.token.Cancel()
	active.endSpan("errored")
	c.persist(job)
}

// sealLocked settles the placeholder, keeping any partial content.
func (c *Controller) sealLocked(active *activeTurn, reason string) {
	id, sealed := active.asm.Seal()
	if sealed {
		c.logger.Debug("placeholder sealed",
			slog.String("session_id", c.id),
			slog.String("message_id", id),
			slog.String("reason", reason))
		c.publish(ports.EventMessageSealed, id)
	}
}

func (c *Controller) appendLocked(msg *domain.Message) {
	c.messages = append(c.messages, msg)
	c.publish(ports.EventMessageAppended, msg.ID)
}

func (c *Controller) findLocked(id string) *domain.Message {
	for _, m := range c.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (c *Controller) setStatusLocked(status domain.SessionStatus) {
	if c.status == status {
		return
	}
	c.status = status
	c.publish(ports.EventStatusChanged, "")
}

// publish notifies the host. Publishers are required to be non-blocking,
// so this stays on the callback path.
func (c *Controller) publish(eventType ports.SessionEventType, messageID string) {
	if c.events == nil {
		return
	}
	ev := &ports.SessionEvent{
		Type:      eventType,
		SessionID: c.id,
		Status:    c.status,
		MessageID: messageID,
		Timestamp: c.now(),
	}
	if err := c.events.Publish(context.Background(), ev); err != nil {
		c.logger.Warn("event publish failed",
			slog.String("type", string(eventType)),
			slog.String("error", err.Error()))
	}
}

// persistJob carries one transcript snapshot tagged with the sequence it
// was taken at. The sequence decides which snapshot is newest; mutex
// acquisition order does not.
type persistJob struct {
	seq  uint64
	msgs []*domain.Message
}

// snapshotLocked clones the transcript and stamps it with the next
// persistence sequence. Callers hold c.mu.
func (c *Controller) snapshotLocked() persistJob {
	c.persistSeq++
	return persistJob{seq: c.persistSeq, msgs: domain.CloneMessages(c.messages)}
}

// persist writes the full transcript, newest-sequence-wins, decoupled from
// the caller. Failures are logged and swallowed: persistence never blocks
// or rolls back conversation state.
func (c *Controller) persist(job persistJob) {
	if c.store == nil {
		return
	}
	go c.persistNow(job)
}

func (c *Controller) persistNow(job persistJob) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if job.seq <= c.persistedSeq {
		// A newer snapshot already reached the store.
		return
	}
	saveCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.store.Save(saveCtx, c.id, job.msgs); err != nil {
		c.logger.Warn("transcript save failed",
			slog.String("session_id", c.id),
			slog.String("error", err.Error()))
		return
	}
	c.persistedSeq = job.seq
}

func (a *activeTurn) endSpan(outcome string) {
	if a.span == nil {
		return
	}
	a.span.SetAttributes(attribute.String("turn.outcome", outcome))
	a.span.End()
}

// transcriptSink adapts the controller's message list for the assembler.
// Its methods are only invoked while the controller's mutex is held.
type transcriptSink struct {
	c *Controller
}

func (s *transcriptSink) Append(msg *domain.Message) {
	s.c.appendLocked(msg)
}

func (s *transcriptSink) Remove(id string) {
	for i, m := range s.c.messages {
		if m.ID == id {
			s.c.messages = append(s.c.messages[:i], s.c.messages[i+1:]...)
			return
		}
	}
}
