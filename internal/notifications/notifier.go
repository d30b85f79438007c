package notifications

import "context"

type WelcomeInput struct {
	UserID   int64
	Email    string
	UserName string
	FullName string
}

type FarewellInput struct {
	UserID   int64
	Email    string
	UserName string
}

// Notifier delivers lifecycle messages to a user.
type Notifier interface {
	SendWelcome(ctx context.Context, in WelcomeInput) error
	SendFarewell(ctx context.Context, in FarewellInput) error
}
