// Package bridge contains the poll-connect-publish cycle: one RCON
// session per cycle, event relay to Discord, and player-count tracking
// with suppression of redundant topic writes.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/af-inet/PZDiscordEventPublisher/internal/faults"
	"github.com/af-inet/PZDiscordEventPublisher/internal/metrics"
	"github.com/af-inet/PZDiscordEventPublisher/internal/parse"
	"github.com/af-inet/PZDiscordEventPublisher/internal/platform/config"
	"github.com/af-inet/PZDiscordEventPublisher/internal/platform/correlation"
	"github.com/af-inet/PZDiscordEventPublisher/internal/rcon"
)

// countNeverPublished is the sentinel for "no topic write yet".
const countNeverPublished = -1

// Publisher is the chat-platform capability the controller consumes.
type Publisher interface {
	SendMessage(text string) error
	SetTopic(topic string) error
	SetPresence(text string) error
}

// Outcome classifies how a poll cycle ended.
type Outcome string

const (
	// OutcomePublished means at least one event chunk reached the channel.
	OutcomePublished Outcome = "published"
	// OutcomeQuiet means the server had nothing to report.
	OutcomeQuiet Outcome = "quiet"
	// OutcomeNotReady means events were available but no channel handle is.
	OutcomeNotReady Outcome = "not_ready"
	// OutcomeFault means the cycle failed and the cooldown was applied.
	OutcomeFault Outcome = "fault"
)

// Result is the outcome of one poll cycle. Fault is nil unless Outcome
// is OutcomeFault.
type Result struct {
	Outcome Outcome
	Chunks  int
	Fault   *faults.Fault
}

// Controller performs poll cycles. It owns the only cross-cycle state,
// the last count written to the channel topic. Cycles run strictly
// sequentially; the status snapshot is the only field read concurrently.
type Controller struct {
	dialer    rcon.Dialer
	publisher Publisher
	clock     clockwork.Clock

	address        string
	password       string
	eventCommand   string
	playersCommand string
	mode           config.Mode
	maxChunk       int
	cooldown       time.Duration

	lastPublished int

	statusMu    sync.RWMutex
	lastOutcome Outcome
	lastCycleAt time.Time
}

func NewController(cfg *config.Config, dialer rcon.Dialer, publisher Publisher, clock clockwork.Clock) *Controller {
	return &Controller{
		dialer:         dialer,
		publisher:      publisher,
		clock:          clock,
		address:        cfg.RCONAddress(),
		password:       cfg.RCONPassword,
		eventCommand:   cfg.EventCommand,
		playersCommand: cfg.PlayersCommand,
		mode:           cfg.BridgeMode,
		maxChunk:       cfg.MaxChunkSize,
		cooldown:       cfg.FailureCooldown,
		lastPublished:  countNeverPublished,
	}
}

// RunCycle performs one full poll-publish cycle. It never returns an
// error: every fault is contained, logged, counted, and followed by the
// configured cooldown so a rejecting server is not hammered.
func (c *Controller) RunCycle(ctx context.Context) Result {
	ctx = correlation.WithID(ctx, correlation.NewID())

	start := c.clock.Now()
	result := c.runCycle(ctx)
	metrics.CycleDuration.Observe(c.clock.Since(start).Seconds())
	metrics.CyclesTotal.WithLabelValues(string(result.Outcome)).Inc()

	if result.Outcome == OutcomeFault {
		f := result.Fault
		metrics.CycleFaults.WithLabelValues(string(f.Kind)).Inc()
		slog.Log(ctx, f.LogLevel(), "Poll cycle failed",
			"kind", string(f.Kind), "error", f, "cooldown", c.cooldown)
		c.sleep(ctx, c.cooldown)
	}

	c.statusMu.Lock()
	c.lastOutcome = result.Outcome
	c.lastCycleAt = c.clock.Now()
	c.statusMu.Unlock()

	return result
}

func (c *Controller) runCycle(ctx context.Context) Result {
	session, err := c.dialer.Dial(ctx, c.address, c.password)
	if err != nil {
		f := faults.AsFault(err, faults.KindConnect)
		if f.Kind == faults.KindBenignClosed && c.mode == config.ModePresence {
			// Paused server: nobody is on it.
			c.publishCount(ctx, 0)
		}
		return Result{Outcome: OutcomeFault, Fault: f}
	}
	defer func() { _ = session.Close() }()

	if c.mode == config.ModePresence {
		count := 0
		response, err := session.Send(c.playersCommand)
		if err != nil {
			slog.WarnContext(ctx, "Player count query failed, assuming zero",
				"command", c.playersCommand, "error", err)
		} else {
			count = parse.PlayerCount(response)
		}
		c.publishCount(ctx, count)
	}

	raw, err := session.Send(c.eventCommand)
	if err != nil {
		return Result{Outcome: OutcomeFault, Fault: faults.AsFault(err, faults.KindQuery)}
	}

	events := parse.CleanEvents(raw)
	if events == "" {
		slog.DebugContext(ctx, "Quiet cycle, nothing to publish")
		return Result{Outcome: OutcomeQuiet}
	}

	if c.publisher == nil {
		slog.WarnContext(ctx, "No channel handle yet, dropping events", "size", len(events))
		return Result{Outcome: OutcomeNotReady}
	}

	chunks := parse.SplitChunks(events, c.maxChunk)
	for i, chunk := range chunks {
		if err := c.publisher.SendMessage(chunk); err != nil {
			f := faults.AsFault(err, faults.KindPublish).WithContext("chunk_index", i)
			return Result{Outcome: OutcomeFault, Chunks: i, Fault: f}
		}
	}

	slog.InfoContext(ctx, "Published server events", "chunks", len(chunks), "size", len(events))
	return Result{Outcome: OutcomePublished, Chunks: len(chunks)}
}

// publishCount reflects a freshly computed player count into presence
// and topic. Presence is cheap and idempotent so it is written every
// time; the topic write is suppressed unless the count changed, and a
// failed topic write leaves the remembered count untouched so the next
// cycle retries the same value.
func (c *Controller) publishCount(ctx context.Context, count int) {
	metrics.PlayersOnline.Set(float64(count))

	if c.publisher == nil {
		return
	}

	if err := c.publisher.SetPresence(presenceText(count)); err != nil {
		slog.WarnContext(ctx, "Presence update failed", "count", count, "error", err)
	}

	if count == c.lastPublished {
		return
	}
	if err := c.publisher.SetTopic(fmt.Sprintf("Players online: %d", count)); err != nil {
		slog.ErrorContext(ctx, "Topic update failed", "count", count, "error", err)
		return
	}
	slog.InfoContext(ctx, "Channel topic updated", "count", count, "previous", c.lastPublished)
	c.lastPublished = count
}

func presenceText(count int) string {
	if count == 1 {
		return "1 survivor online"
	}
	return fmt.Sprintf("%d survivors online", count)
}

// sleep blocks for the cooldown, returning early on context cancel.
func (c *Controller) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-c.clock.After(d):
	case <-ctx.Done():
	}
}

// Status is a snapshot of the most recent cycle for the readiness probe.
type Status struct {
	LastOutcome Outcome
	LastCycleAt time.Time
}

func (c *Controller) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return Status{LastOutcome: c.lastOutcome, LastCycleAt: c.lastCycleAt}
}
