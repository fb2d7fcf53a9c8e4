package rcon

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBenignClosed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"wrapped eof", fmt.Errorf("read response: %w", io.EOF), true},
		{"net closed", net.ErrClosed, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"broken pipe", syscall.EPIPE, true},
		{"exact original message", errors.New("Error: Connection closed"), true},
		{"lowercase message", errors.New("rcon: connection closed by remote"), true},
		{"dial timeout", errors.New("dial tcp 10.0.0.5:27015: i/o timeout"), false},
		{"auth failure", errors.New("rcon: authentication failed"), false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBenignClosed(tt.err))
		})
	}
}
