package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrProviderDown = errors.New("notification provider down (simulated)")

// LogNotifier writes messages to the log instead of a mail provider.
// Delay and Fail simulate a slow or broken provider in local runs.
type LogNotifier struct {
	log   *slog.Logger
	Delay time.Duration
	Fail  bool
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendWelcome(ctx context.Context, in WelcomeInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	name := in.FullName
	if name == "" {
		name = in.UserName
	}

	n.log.InfoContext(ctx, "notification.welcome",
		"user_id", in.UserID,
		"email", in.Email,
		"name", name,
	)
	return nil
}

func (n *LogNotifier) SendFarewell(ctx context.Context, in FarewellInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.farewell",
		"user_id", in.UserID,
		"email", in.Email,
		"user_name", in.UserName,
	)
	return nil
}

func (n *LogNotifier) simulate(ctx context.Context) error {
	if n.Delay > 0 {
		select {
		case <-time.After(n.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if n.Fail {
		return ErrProviderDown
	}

	return nil
}
