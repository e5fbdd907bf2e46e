package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"radar-watch-service/internal/metrics"
	"radar-watch-service/internal/retry"
)

type State int32

const (
	StateUninitialized State = iota
	StateCheckingExistence
	StateCreating
	StateCheckingState
	StateConnecting
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateCheckingExistence:
		return "checking_existence"
	case StateCreating:
		return "creating"
	case StateCheckingState:
		return "checking_state"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// InProgress reports whether a provisioning traversal owns the session in this state.
func (s State) InProgress() bool {
	switch s {
	case StateCheckingExistence, StateCreating, StateCheckingState, StateConnecting:
		return true
	}
	return false
}

// Provisioner is the subset of the gateway API the session drives.
type Provisioner interface {
	InstanceExists(ctx context.Context, instance string) (bool, error)
	CreateInstance(ctx context.Context, req CreateInstanceRequest) error
	ConnectionState(ctx context.Context, instance string) (string, error)
	Connect(ctx context.Context, instance string) error
}

type SessionConfig struct {
	Instance    string
	Integration string

	Retry           retry.Config
	Timeout         time.Duration // wall-clock bound for one traversal
	RestartDelay    time.Duration // wait before a full restart after failure
	StartupDelay    time.Duration
	PostCreateDelay time.Duration
	ConnectDelay    time.Duration // after requesting pairing
	ConnectingDelay time.Duration // while the gateway reports "connecting"
}

// Session provisions and pairs one gateway instance. Its state value is the only
// shared state: Ready means the personal channel may send, the four intermediate
// states mean a traversal is running.
type Session struct {
	api     Provisioner
	cfg     SessionConfig
	log     zerolog.Logger
	metrics *metrics.Metrics

	state atomic.Int32

	mu      sync.Mutex
	closed  bool
	baseCtx context.Context
	cancel  context.CancelFunc
	timer   *time.Timer
	wg      sync.WaitGroup
}

func NewSession(api Provisioner, cfg SessionConfig, m *metrics.Metrics, log zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		api:     api,
		cfg:     cfg,
		log:     log,
		metrics: m,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) Ready() bool { return s.State() == StateReady }

func (s *Session) InProgress() bool { return s.State().InProgress() }

func (s *Session) Instance() string { return s.cfg.Instance }

// Start schedules the first traversal after the configured startup delay.
func (s *Session) Start() {
	s.log.Info().
		Str("instance", s.cfg.Instance).
		Dur("startup_delay", s.cfg.StartupDelay).
		Msg("gateway session starting")

	if s.cfg.StartupDelay <= 0 {
		s.Trigger()
		return
	}
	s.schedule(s.cfg.StartupDelay, func() { s.Trigger() })
}

// Trigger starts a traversal in the background unless one is already running.
// It returns immediately; false means the call was ignored.
func (s *Session) Trigger() bool {
	return s.begin(func(cur State) bool { return !cur.InProgress() })
}

// Reconnect is the operator-requested re-verification; ignored while in progress.
func (s *Session) Reconnect() bool {
	s.log.Info().Str("instance", s.cfg.Instance).Msg("gateway reconnect requested")
	return s.Trigger()
}

// MarkUnready drops readiness after a send failure and re-verifies the session.
func (s *Session) MarkUnready() {
	if s.state.CompareAndSwap(int32(StateReady), int32(StateUninitialized)) {
		s.observe(StateUninitialized)
		s.log.Warn().Str("instance", s.cfg.Instance).Msg("gateway session marked not ready, re-verifying")
		s.Trigger()
	}
}

// Close stops pending restarts, cancels a running traversal and waits for it.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// begin CASes an eligible state to CheckingExistence and spawns the traversal.
func (s *Session) begin(eligible func(State) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	for {
		cur := s.State()
		if !eligible(cur) {
			s.log.Debug().Str("state", cur.String()).Msg("gateway traversal already in progress, ignoring trigger")
			return false
		}
		if s.state.CompareAndSwap(int32(cur), int32(StateCheckingExistence)) {
			break
		}
	}
	s.observe(StateCheckingExistence)

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
	return true
}

func (s *Session) run() {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.Timeout)
	defer cancel()

	rc := s.cfg.Retry
	rc.OnRetry = func(attempt int, err error, next time.Duration) {
		s.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", s.cfg.Retry.MaxAttempts).
			Dur("backoff", next).
			Msg("gateway provisioning attempt failed, retrying")
	}

	start := time.Now()
	err := retry.Do(ctx, rc, func() error { return s.traverse(ctx) })
	if err == nil {
		s.setState(StateReady)
		s.metrics.GatewayTraversals.WithLabelValues("ready").Inc()
		s.log.Info().
			Str("instance", s.cfg.Instance).
			Dur("elapsed", time.Since(start)).
			Msg("gateway session ready")
		return
	}

	outcome := "failed"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case errors.Is(err, retry.ErrExhausted):
		outcome = "exhausted"
	case retry.IsNonRetryable(err):
		outcome = "non_recoverable"
	}
	s.metrics.GatewayTraversals.WithLabelValues(outcome).Inc()

	s.setState(StateFailed)
	s.log.Error().
		Err(err).
		Str("instance", s.cfg.Instance).
		Str("outcome", outcome).
		Dur("restart_in", s.cfg.RestartDelay).
		Msg("gateway session provisioning failed")

	s.schedule(s.cfg.RestartDelay, s.restart)
}

// restart re-enters the traversal only if nothing else has moved the session out
// of Failed in the meantime.
func (s *Session) restart() {
	s.log.Info().Str("instance", s.cfg.Instance).Msg("restarting gateway session provisioning")
	s.begin(func(cur State) bool { return cur == StateFailed })
}

func (s *Session) traverse(ctx context.Context) error {
	s.setState(StateCheckingExistence)
	exists, err := s.api.InstanceExists(ctx, s.cfg.Instance)
	if err != nil {
		return classify(fmt.Errorf("check instance existence: %w", err))
	}

	if !exists {
		s.setState(StateCreating)
		s.log.Info().Str("instance", s.cfg.Instance).Msg("gateway instance not found, creating")
		req := CreateInstanceRequest{
			InstanceName: s.cfg.Instance,
			Token:        uuid.NewString(),
			QRCode:       true,
			Integration:  s.cfg.Integration,
		}
		if err := s.api.CreateInstance(ctx, req); err != nil {
			return classify(fmt.Errorf("create instance: %w", err))
		}
		if err := wait(ctx, s.cfg.PostCreateDelay); err != nil {
			return err
		}
	}

	for {
		s.setState(StateCheckingState)
		raw, err := s.api.ConnectionState(ctx, s.cfg.Instance)
		if err != nil {
			return classify(fmt.Errorf("check connection state: %w", err))
		}

		state := strings.ToLower(strings.TrimSpace(raw))
		s.log.Debug().Str("instance", s.cfg.Instance).Str("gateway_state", state).Msg("gateway connection state")

		switch state {
		case "open", "connected":
			return nil
		case "connecting":
			if err := wait(ctx, s.cfg.ConnectingDelay); err != nil {
				return err
			}
			continue
		case "close", "disconnected":
		default:
			s.log.Warn().Str("gateway_state", raw).Msg("unrecognized gateway state, requesting connection")
		}

		s.setState(StateConnecting)
		if err := s.api.Connect(ctx, s.cfg.Instance); err != nil {
			return classify(fmt.Errorf("connect instance: %w", err))
		}
		if err := wait(ctx, s.cfg.ConnectDelay); err != nil {
			return err
		}
	}
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	s.observe(st)
}

func (s *Session) observe(st State) {
	s.metrics.GatewayState.Set(float64(st))
}

func (s *Session) schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, fn)
}

func classify(err error) error {
	if IsRecoverable(err) {
		return err
	}
	return retry.NonRetryable(err)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
