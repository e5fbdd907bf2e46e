// Package notify renders confirmed alerts and fans them out to the notification
// channels.
package notify

import (
	"context"
	"errors"
)

var (
	// ErrChannelNotReady is returned by a channel whose backing session cannot send yet.
	ErrChannelNotReady = errors.New("channel not ready")
	// ErrInvalidDestination is returned when a destination normalizes to nothing.
	ErrInvalidDestination = errors.New("invalid destination")
)

// Sender delivers one text to one destination on a channel.
type Sender interface {
	Send(ctx context.Context, destination, text string) error
}
