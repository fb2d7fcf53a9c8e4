package bridge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/af-inet/PZDiscordEventPublisher/internal/faults"
	"github.com/af-inet/PZDiscordEventPublisher/internal/platform/config"
	"github.com/af-inet/PZDiscordEventPublisher/internal/rcon"
)

// --- fakes ---

type fakeSession struct {
	responses map[string]string
	errs      map[string]error
	sent      []string
	closed    bool
	closeErr  error
}

func (s *fakeSession) Send(command string) (string, error) {
	s.sent = append(s.sent, command)
	if err, ok := s.errs[command]; ok {
		return "", err
	}
	return s.responses[command], nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return s.closeErr
}

type fakeDialer struct {
	session *fakeSession
	err     error
	dials   int
}

func (d *fakeDialer) Dial(_ context.Context, _, _ string) (rcon.Session, error) {
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

type fakePublisher struct {
	messages    []string
	topics      []string
	presences   []string
	sendErr     error
	topicErr    error
	presenceErr error
}

func (p *fakePublisher) SendMessage(text string) error {
	if p.sendErr != nil {
		return p.sendErr
	}
	p.messages = append(p.messages, text)
	return nil
}

func (p *fakePublisher) SetTopic(topic string) error {
	if p.topicErr != nil {
		return p.topicErr
	}
	p.topics = append(p.topics, topic)
	return nil
}

func (p *fakePublisher) SetPresence(text string) error {
	if p.presenceErr != nil {
		return p.presenceErr
	}
	p.presences = append(p.presences, text)
	return nil
}

func testConfig(mode config.Mode) *config.Config {
	return &config.Config{
		RCONHost:        "localhost",
		RCONPort:        "27015",
		RCONPassword:    "pw",
		EventCommand:    "checkEvents",
		PlayersCommand:  "players",
		BridgeMode:      mode,
		MaxChunkSize:    1900,
		PollInterval:    10 * time.Second,
		ConnectTimeout:  15 * time.Second,
		FailureCooldown: 0,
	}
}

// --- cycle controller ---

func TestRunCycle_QuietCycle(t *testing.T) {
	session := &fakeSession{responses: map[string]string{"checkEvents": "   \n  "}}
	publisher := &fakePublisher{}
	c := NewController(testConfig(config.ModeRelay), &fakeDialer{session: session}, publisher, clockwork.NewFakeClock())

	result := c.RunCycle(context.Background())

	assert.Equal(t, OutcomeQuiet, result.Outcome)
	assert.Empty(t, publisher.messages)
	assert.True(t, session.closed)
}

func TestRunCycle_PublishesChunksInOrder(t *testing.T) {
	payload := strings.Repeat("x", 5000)
	session := &fakeSession{responses: map[string]string{"checkEvents": payload}}
	publisher := &fakePublisher{}
	c := NewController(testConfig(config.ModeRelay), &fakeDialer{session: session}, publisher, clockwork.NewFakeClock())

	result := c.RunCycle(context.Background())

	assert.Equal(t, OutcomePublished, result.Outcome)
	assert.Equal(t, 3, result.Chunks)
	require.Len(t, publisher.messages, 3)
	assert.Len(t, publisher.messages[0], 1900)
	assert.Len(t, publisher.messages[1], 1900)
	assert.Len(t, publisher.messages[2], 1200)
	assert.Equal(t, payload, strings.Join(publisher.messages, ""))
	assert.True(t, session.closed)
}

func TestRunCycle_RelayModeSkipsPlayersQuery(t *testing.T) {
	session := &fakeSession{responses: map[string]string{"checkEvents": "Alice joined"}}
	publisher := &fakePublisher{}
	c := NewController(testConfig(config.ModeRelay), &fakeDialer{session: session}, publisher, clockwork.NewFakeClock())

	c.RunCycle(context.Background())

	assert.Equal(t, []string{"checkEvents"}, session.sent)
	assert.Empty(t, publisher.presences)
	assert.Empty(t, publisher.topics)
}

func TestRunCycle_PresenceAndTopicFromPlayerCount(t *testing.T) {
	session := &fakeSession{responses: map[string]string{
		"players":     "Players connected (2):\nAlice\nBob",
		"checkEvents": "",
	}}
	publisher := &fakePublisher{}
	c := NewController(testConfig(config.ModePresence), &fakeDialer{session: session}, publisher, clockwork.NewFakeClock())

	result := c.RunCycle(context.Background())

	assert.Equal(t, OutcomeQuiet, result.Outcome)
	assert.Equal(t, []string{"2 survivors online"}, publisher.presences)
	assert.Equal(t, []string{"Players online: 2"}, publisher.topics)
}

func TestRunCycle_TopicWriteSuppressedWhenCountUnchanged(t *testing.T) {
	session := &fakeSession{responses: map[string]string{
		"players":     "Players connected (2):\nAlice\nBob",
		"checkEvents": "",
	}}
	publisher := &fakePublisher{}
	c := NewController(testConfig(config.ModePresence), &fakeDialer{session: session}, publisher, clockwork.NewFakeClock())

	c.RunCycle(context.Background())
	c.RunCycle(context.Background())

	// Presence refreshes every cycle, the topic only on change.
	assert.Len(t, publisher.presences, 2)
	assert.Len(t, publisher.topics, 1)
}

func TestRunCycle_TopicWrittenAgainOnCountChange(t *testing.T) {
	session := &fakeSession{responses: map[string]string{
		"players":     "Players connected (2):\nAlice\nBob",
		"checkEvents": "",
	}}
	publisher := &fakePublisher{}
	c := NewController(testConfig(config.ModePresence), &fakeDialer{session: session}, publisher, clockwork.NewFakeClock())

	c.RunCycle(context.Background())
	session.responses["players"] = "Players connected (1):\nAlice"
	c.RunCycle(context.Background())

	assert.Equal(t, []string{"Players online: 2", "Players online: 1"}, publisher.topics)
	assert.Equal(t, "1 survivor online", publisher.presences[1])
}

func TestRunCycle_FailedTopicWriteRetriedNextCycle(t *testing.T) {
	session := &fakeSession{responses: map[string]string{
		"players":     "Players connected (3):\na\nb\nc",
		"checkEvents": "",
	}}
	publisher := &fakePublisher{topicErr: errors.New("HTTP 500")}
	c := NewController(testConfig(config.ModePresence), &fakeDialer{session: session}, publisher, clockwork.NewFakeClock())

	c.RunCycle(context.Background())
	require.Empty(t, publisher.topics)

	publisher.topicErr = nil
	c.RunCycle(context.Background())

	assert.Equal(t, []string{"Players online: 3"}, publisher.topics)
}

func TestRunCycle_PresenceFailureDoesNotBlockTopic(t *testing.T) {
	session := &fakeSession{responses: map[string]string{
		"players":     "Players connected (4):\na\nb\nc\nd",
		"checkEvents": "",
	}}
	publisher := &fakePublisher{presenceErr: errors.New("gateway down")}
	c := NewController(testConfig(config.ModePresence), &fakeDialer{session: session}, publisher, clockwork.NewFakeClock())

	result := c.RunCycle(context.Background())

	assert.Equal(t, OutcomeQuiet, result.Outcome)
	assert.Equal(t, []string{"Players online: 4"}, publisher.topics)
}

func TestRunCycle_PlayersQueryFaultDefaultsToZero(t *testing.T) {
	session := &fakeSession{
		responses: map[string]string{"checkEvents": "Alice was killed."},
		errs:      map[string]error{"players": errors.New("read: connection reset")},
	}
	publisher := &fakePublisher{}
	c := NewController(testConfig(config.ModePresence), &fakeDialer{session: session}, publisher, clockwork.NewFakeClock())

	result := c.RunCycle(context.Background())

	// A failed status query must not abort the cycle.
	assert.Equal(t, OutcomePublished, result.Outcome)
	assert.Equal(t, []string{"0 survivors online"}, publisher.presences)
	assert.Equal(t, []string{"Players online: 0"}, publisher.topics)
	assert.Equal(t, []string{"Alice was killed."}, publisher.messages)
}

func TestRunCycle_ConnectFault(t *testing.T) {
	dialer := &fakeDialer{err: faults.Connect("failed to open rcon session", errors.New("i/o timeout"))}
	publisher := &fakePublisher{}
	c := NewController(testConfig(config.ModePresence), dialer, publisher, clockwork.NewFakeClock())

	result := c.RunCycle(context.Background())

	require.Equal(t, OutcomeFault, result.Outcome)
	assert.Equal(t, faults.KindConnect, result.Fault.Kind)
	assert.Empty(t, publisher.messages)
	// Only a benign close implies an empty server.
	assert.Empty(t, publisher.presences)
}

func TestRunCycle_BenignClosedTreatedAsZeroPlayers(t *testing.T) {
	dialer := &fakeDialer{err: faults.BenignClosed("server refused rcon session", errors.New("Error: Connection closed"))}
	publisher := &fakePublisher{}
	c := NewController(testConfig(config.ModePresence), dialer, publisher, clockwork.NewFakeClock())

	result := c.RunCycle(context.Background())

	require.Equal(t, OutcomeFault, result.Outcome)
	assert.Equal(t, faults.KindBenignClosed, result.Fault.Kind)
	assert.Equal(t, []string{"0 survivors online"}, publisher.presences)
	assert.Equal(t, []string{"Players online: 0"}, publisher.topics)
}

func TestRunCycle_FaultAppliesCooldown(t *testing.T) {
	cfg := testConfig(config.ModeRelay)
	cfg.FailureCooldown = 60 * time.Second
	clock := clockwork.NewFakeClock()
	dialer := &fakeDialer{err: faults.BenignClosed("server refused rcon session", errors.New("Error: Connection closed"))}
	c := NewController(cfg, dialer, &fakePublisher{}, clock)

	done := make(chan Result, 1)
	go func() { done <- c.RunCycle(context.Background()) }()

	// The controller must be parked in its cooldown sleep.
	clock.BlockUntil(1)
	select {
	case <-done:
		t.Fatal("cycle returned before the cooldown elapsed")
	case <-time.After(10 * time.Millisecond):
	}

	clock.Advance(60 * time.Second)
	result := <-done
	assert.Equal(t, OutcomeFault, result.Outcome)
}

func TestRunCycle_QuietCycleSkipsCooldown(t *testing.T) {
	cfg := testConfig(config.ModeRelay)
	cfg.FailureCooldown = 60 * time.Second
	clock := clockwork.NewFakeClock()
	session := &fakeSession{responses: map[string]string{"checkEvents": ""}}
	c := NewController(cfg, &fakeDialer{session: session}, &fakePublisher{}, clock)

	// Completes without anyone advancing the fake clock.
	result := c.RunCycle(context.Background())
	assert.Equal(t, OutcomeQuiet, result.Outcome)
}

func TestRunCycle_CooldownAbortsOnCancel(t *testing.T) {
	cfg := testConfig(config.ModeRelay)
	cfg.FailureCooldown = 60 * time.Second
	clock := clockwork.NewFakeClock()
	dialer := &fakeDialer{err: faults.Connect("failed to open rcon session", nil)}
	c := NewController(cfg, dialer, &fakePublisher{}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() { done <- c.RunCycle(ctx) }()

	clock.BlockUntil(1)
	cancel()

	result := <-done
	assert.Equal(t, OutcomeFault, result.Outcome)
}

func TestRunCycle_ChunkSendFaultEscalates(t *testing.T) {
	session := &fakeSession{responses: map[string]string{"checkEvents": "Alice joined"}}
	publisher := &fakePublisher{sendErr: faults.Publish("failed to send message chunk", errors.New("HTTP 403"))}
	c := NewController(testConfig(config.ModeRelay), &fakeDialer{session: session}, publisher, clockwork.NewFakeClock())

	result := c.RunCycle(context.Background())

	require.Equal(t, OutcomeFault, result.Outcome)
	assert.Equal(t, faults.KindPublish, result.Fault.Kind)
	assert.True(t, session.closed)
}

func TestRunCycle_EventQueryFaultClosesSession(t *testing.T) {
	session := &fakeSession{errs: map[string]error{"checkEvents": errors.New("write: broken pipe")}}
	c := NewController(testConfig(config.ModeRelay), &fakeDialer{session: session}, &fakePublisher{}, clockwork.NewFakeClock())

	result := c.RunCycle(context.Background())

	require.Equal(t, OutcomeFault, result.Outcome)
	assert.Equal(t, faults.KindQuery, result.Fault.Kind)
	assert.True(t, session.closed)
}

func TestRunCycle_CloseFailureIsSwallowed(t *testing.T) {
	session := &fakeSession{
		responses: map[string]string{"checkEvents": "Alice joined"},
		closeErr:  errors.New("close: connection already closed"),
	}
	publisher := &fakePublisher{}
	c := NewController(testConfig(config.ModeRelay), &fakeDialer{session: session}, publisher, clockwork.NewFakeClock())

	result := c.RunCycle(context.Background())

	assert.Equal(t, OutcomePublished, result.Outcome)
	assert.Equal(t, []string{"Alice joined"}, publisher.messages)
}

func TestRunCycle_NoPublisherIsNotReady(t *testing.T) {
	session := &fakeSession{responses: map[string]string{"checkEvents": "Alice joined"}}
	c := NewController(testConfig(config.ModeRelay), &fakeDialer{session: session}, nil, clockwork.NewFakeClock())

	result := c.RunCycle(context.Background())

	assert.Equal(t, OutcomeNotReady, result.Outcome)
	assert.True(t, session.closed)
}

func TestStatus_ReflectsLastCycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	session := &fakeSession{responses: map[string]string{"checkEvents": ""}}
	c := NewController(testConfig(config.ModeRelay), &fakeDialer{session: session}, &fakePublisher{}, clock)

	assert.True(t, c.Status().LastCycleAt.IsZero())

	c.RunCycle(context.Background())

	status := c.Status()
	assert.Equal(t, OutcomeQuiet, status.LastOutcome)
	assert.Equal(t, clock.Now(), status.LastCycleAt)
}

func TestPresenceText(t *testing.T) {
	assert.Equal(t, "0 survivors online", presenceText(0))
	assert.Equal(t, "1 survivor online", presenceText(1))
	assert.Equal(t, "2 survivors online", presenceText(2))
}
