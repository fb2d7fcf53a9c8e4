// Package rcon adapts the gorcon transport into the session capability
// the cycle controller consumes, classifying transport errors into the
// fault taxonomy at this boundary.
package rcon

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	gorcon "github.com/gorcon/rcon"

	"github.com/af-inet/PZDiscordEventPublisher/internal/faults"
	"github.com/af-inet/PZDiscordEventPublisher/internal/metrics"
)

// Session is one authenticated RCON connection. It belongs to a single
// poll cycle and is closed at cycle end.
type Session interface {
	Send(command string) (string, error)
	Close() error
}

// Dialer opens RCON sessions.
type Dialer interface {
	Dial(ctx context.Context, address, password string) (Session, error)
}

// NetDialer opens real RCON connections with bounded dial and IO deadlines.
type NetDialer struct {
	timeout time.Duration
}

func NewDialer(timeout time.Duration) *NetDialer {
	return &NetDialer{timeout: timeout}
}

// Dial opens and authenticates an RCON session. Errors come back already
// classified: a benign-closed fault when the server dropped the
// connection without protocol-level failure, a connect fault otherwise.
func (d *NetDialer) Dial(ctx context.Context, address, password string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, faults.Connect("dial cancelled", err)
	}

	conn, err := gorcon.Dial(address, password,
		gorcon.SetDialTimeout(d.timeout),
		gorcon.SetDeadline(d.timeout),
	)
	if err != nil {
		if IsBenignClosed(err) {
			metrics.RCONConnectsTotal.WithLabelValues("benign_closed").Inc()
			return nil, faults.BenignClosed("server refused rcon session", err).
				WithContext("address", address)
		}
		metrics.RCONConnectsTotal.WithLabelValues("fault").Inc()
		return nil, faults.Connect("failed to open rcon session", err).
			WithContext("address", address)
	}

	metrics.RCONConnectsTotal.WithLabelValues("ok").Inc()
	return &session{conn: conn}, nil
}

type session struct {
	conn *gorcon.Conn
}

func (s *session) Send(command string) (string, error) {
	start := time.Now()
	response, err := s.conn.Execute(command)
	metrics.RCONQueryDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	if err != nil {
		if IsBenignClosed(err) {
			return "", faults.BenignClosed("server closed connection mid-query", err).
				WithContext("command", command)
		}
		return "", faults.Query("rcon query failed", err).
			WithContext("command", command)
	}
	return response, nil
}

func (s *session) Close() error {
	return s.conn.Close()
}

// IsBenignClosed reports whether err means the remote server dropped the
// connection without genuinely erroring. A paused Zomboid server accepts
// the TCP handshake and immediately closes, which must not be treated as
// an operational failure.
func IsBenignClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection closed")
}
