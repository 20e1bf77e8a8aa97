package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	digestagent "github.com/newsdigest-agent/internal/agent/digest"
	"github.com/newsdigest-agent/internal/config"
	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/storage"
	"github.com/newsdigest-agent/pkg/logger"
)

// Default loop timings
const (
	DefaultInterval = time.Hour        // used when no active configuration exists
	DefaultTick     = 10 * time.Second // stop-signal check granularity
	DefaultCooldown = time.Minute      // back-off after a recovered cycle fault
)

// Sentinel errors for refused transitions
var (
	ErrAlreadyRunning = errors.New("scheduler is already running")
	ErrNotRunning     = errors.New("scheduler is not running")
	ErrNoConfig       = errors.New("no active configuration")
)

// MissingCredentialsError is returned by Start when required
// environment variables are absent.
type MissingCredentialsError struct {
	Vars []string
}

func (e *MissingCredentialsError) Error() string {
	return "missing credentials: " + strings.Join(e.Vars, ", ")
}

// Scheduler owns the background delivery loop. Exactly one loop
// goroutine runs at a time; Start and Stop only flip state and return,
// the loop observes a stop request within one tick.
type Scheduler struct {
	repo        storage.Repository
	agent       *digestagent.Agent
	credentials func() config.Credentials
	log         *logger.Logger

	defaultInterval time.Duration
	tick            time.Duration
	cooldown        time.Duration

	mu       sync.Mutex
	running  bool
	stopping bool
	stopCh   chan struct{}
	done     chan struct{}
}

// New creates a scheduler with default loop timings
func New(repo storage.Repository, agent *digestagent.Agent, credentials func() config.Credentials, log *logger.Logger) *Scheduler {
	return &Scheduler{
		repo:            repo,
		agent:           agent,
		credentials:     credentials,
		log:             log.WithComponent("scheduler"),
		defaultInterval: DefaultInterval,
		tick:            DefaultTick,
		cooldown:        DefaultCooldown,
	}
}

// SetTimings overrides the loop timings. Used by cmd wiring and tests.
func (s *Scheduler) SetTimings(defaultInterval, tick, cooldown time.Duration) {
	if defaultInterval > 0 {
		s.defaultInterval = defaultInterval
	}
	if tick > 0 {
		s.tick = tick
	}
	if cooldown > 0 {
		s.cooldown = cooldown
	}
}

// Running reports whether the loop goroutine is alive
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start spawns the delivery loop. It is refused when the loop is
// already running, when no active configuration exists, or when the
// credentials the configured provider needs are absent.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	cfg, err := s.repo.GetActiveConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to read configuration: %w", err)
	}
	if cfg == nil {
		return ErrNoConfig
	}

	if missing := s.missingCredentials(cfg); len(missing) > 0 {
		return &MissingCredentialsError{Vars: missing}
	}

	s.running = true
	s.stopping = false
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stopCh, s.done)

	s.log.Info().Msg("Delivery loop started")
	return nil
}

// Stop signals the loop to exit. The loop drains its current cycle
// and observes the signal within one tick; the running flag flips when
// it actually exits. Idempotent: a second Stop inside the stopping
// window is a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}
	if s.stopping {
		return nil
	}

	s.stopping = true
	close(s.stopCh)
	s.log.Info().Msg("Delivery loop stopping")
	return nil
}

// Wait blocks until the loop goroutine has exited. Only meaningful
// after Stop; returns immediately when the loop never ran.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// RunTest runs one fetch→format→dispatch pass limited to one article,
// marks the message as a test, and logs it with the test status. Works
// whether or not the loop is running; the result is synchronous.
func (s *Scheduler) RunTest(ctx context.Context) (bool, error) {
	cfg, err := s.repo.GetActiveConfig(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read configuration: %w", err)
	}
	if cfg == nil {
		return false, ErrNoConfig
	}

	outcome := s.agent.Run(ctx, cfg, 1, true)

	entry := models.NewDeliveryLog(cfg.ID, outcome.Message, models.StatusTest)
	if err := s.repo.AppendLog(ctx, entry); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist test log entry")
	}

	return outcome.Delivered, nil
}

// missingCredentials returns the env vars the configured provider
// still needs. The messaging credentials are always required; the
// NewsData key only when the newsdata provider is active.
func (s *Scheduler) missingCredentials(cfg *models.DigestConfig) []string {
	creds := s.credentials()
	var missing []string
	for _, name := range creds.Missing() {
		if name == config.EnvNewsDataAPIKey && cfg.Provider == models.ProviderRSS {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}

// loop is the long-lived delivery loop. It never exits on a cycle
// fault; only the stop signal ends it.
func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.stopping = false
		s.mu.Unlock()
		s.log.Info().Msg("Delivery loop stopped")
	}()

	var cycle uint64
	for {
		select {
		case <-stop:
			return
		default:
		}

		cycle++
		interval := s.runCycle(context.Background(), cycle)

		if !s.sleep(stop, interval) {
			return
		}
	}
}

// runCycle executes one full cycle and returns how long to sleep
// before the next one. Faults are caught here: they become an error
// log entry and a cool-down interval, never a loop exit.
func (s *Scheduler) runCycle(ctx context.Context, cycle uint64) (interval time.Duration) {
	log := s.log.WithCycle(cycle)
	interval = s.defaultInterval

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from cycle fault")
			s.appendBestEffort(ctx, 0, fmt.Sprintf("Error: %v", r))
			interval = s.cooldown
		}
	}()

	cfg, err := s.repo.GetActiveConfig(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read configuration")
		s.appendBestEffort(ctx, 0, "Error: "+err.Error())
		return s.cooldown
	}
	if cfg == nil {
		log.Debug().Msg("No active configuration, skipping cycle")
		return s.defaultInterval
	}

	log.Info().Str("topic", cfg.Topic).Msg("Running delivery cycle")

	outcome := s.agent.Run(ctx, cfg, cfg.ArticleCount, false)

	entry := models.NewDeliveryLog(cfg.ID, outcome.Message, outcome.Status)
	if err := s.repo.AppendLog(ctx, entry); err != nil {
		// A persistence failure must not cascade into the loop;
		// one operational log line and move on.
		log.Error().Err(err).Msg("Failed to persist delivery log")
	}

	switch outcome.Status {
	case models.StatusSuccess:
		log.Info().Msg("News digest sent successfully")
	case models.StatusWarning:
		log.Warn().Msg("News digest sent with warnings")
	default:
		log.Error().Msg("Failed to process or send news digest")
	}

	return cfg.Interval()
}

// appendBestEffort records an error entry; a secondary failure while
// logging is itself only logged.
func (s *Scheduler) appendBestEffort(ctx context.Context, configID uint, message string) {
	if configID == 0 {
		if cfg, err := s.repo.GetActiveConfig(ctx); err == nil && cfg != nil {
			configID = cfg.ID
		}
	}
	entry := models.NewDeliveryLog(configID, message, models.StatusError)
	if err := s.repo.AppendLog(ctx, entry); err != nil {
		s.log.Error().Err(err).Msg("Failed to log cycle error")
	}
}

// sleep waits for d in tick-sized slices, returning false as soon as
// the stop signal is observed.
func (s *Scheduler) sleep(stop <-chan struct{}, d time.Duration) bool {
	for remaining := d; remaining > 0; remaining -= s.tick {
		slice := s.tick
		if remaining < slice {
			slice = remaining
		}

		timer := time.NewTimer(slice)
		select {
		case <-stop:
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
	return true
}
