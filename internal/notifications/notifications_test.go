package notifications

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
	block bool
}

func (s *scriptedNotifier) send(ctx context.Context) error {
	s.mu.Lock()
	s.calls++
	err, block := s.err, s.block
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (s *scriptedNotifier) SendWelcome(ctx context.Context, _ WelcomeInput) error   { return s.send(ctx) }
func (s *scriptedNotifier) SendFarewell(ctx context.Context, _ FarewellInput) error { return s.send(ctx) }

func (s *scriptedNotifier) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func TestLogNotifier_LogsWelcome(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, n.SendWelcome(context.Background(), WelcomeInput{UserID: 3, Email: "a@x.io", UserName: "ada"}))

	assert.Contains(t, buf.String(), `"msg":"notification.welcome"`)
	assert.Contains(t, buf.String(), `"name":"ada"`)
}

func TestLogNotifier_SimulatedFailureAndDelay(t *testing.T) {
	n := NewLogNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.Fail = true
	assert.ErrorIs(t, n.SendFarewell(context.Background(), FarewellInput{}), ErrProviderDown)

	n.Fail = false
	n.Delay = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, n.SendFarewell(ctx, FarewellInput{}), context.DeadlineExceeded)
}

func TestProtectedNotifier_OpensAfterThreshold(t *testing.T) {
	boom := errors.New("smtp 421")
	inner := &scriptedNotifier{err: boom}

	p := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 2, Cooldown: time.Minute})

	assert.ErrorIs(t, p.SendWelcome(context.Background(), WelcomeInput{}), boom)
	assert.ErrorIs(t, p.SendWelcome(context.Background(), WelcomeInput{}), boom)
	assert.Equal(t, "open", p.State())

	// fail fast without touching the provider
	assert.ErrorIs(t, p.SendFarewell(context.Background(), FarewellInput{}), ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls)
}

func TestProtectedNotifier_HalfOpenRecovery(t *testing.T) {
	boom := errors.New("smtp 421")
	inner := &scriptedNotifier{err: boom}

	now := time.Now()
	p := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1, Cooldown: time.Minute})
	p.now = func() time.Time { return now }

	require.ErrorIs(t, p.SendWelcome(context.Background(), WelcomeInput{}), boom)
	require.Equal(t, "open", p.State())

	// trial call after cooldown fails: straight back to open
	now = now.Add(2 * time.Minute)
	require.ErrorIs(t, p.SendWelcome(context.Background(), WelcomeInput{}), boom)
	require.Equal(t, "open", p.State())

	now = now.Add(2 * time.Minute)
	inner.setErr(nil)
	require.NoError(t, p.SendWelcome(context.Background(), WelcomeInput{}))
	assert.Equal(t, "closed", p.State())
}

func TestProtectedNotifier_EnforcesTimeout(t *testing.T) {
	inner := &scriptedNotifier{block: true}
	p := NewProtectedNotifier(inner, ProtectedNotifierConfig{Timeout: 20 * time.Millisecond})

	err := p.SendWelcome(context.Background(), WelcomeInput{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
