package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"radar-watch-service/internal/gateway"
	"radar-watch-service/internal/utils"
)

// DefaultGatewayDelay is the typing delay, in milliseconds, the gateway applies
// before delivering a text.
const DefaultGatewayDelay = 1200

// SessionGate is the view of the gateway session the personal channel needs.
type SessionGate interface {
	Ready() bool
	MarkUnready()
	Instance() string
}

type TextSender interface {
	SendText(ctx context.Context, instance string, req gateway.SendTextRequest) error
}

// GatewayChannel sends personal notifications through the chat gateway. It only
// sends while the session is ready; a failed send drops readiness so the session
// re-verifies itself.
type GatewayChannel struct {
	api     TextSender
	session SessionGate
	delay   int
	log     zerolog.Logger
}

func NewGatewayChannel(api TextSender, session SessionGate, delay int, log zerolog.Logger) *GatewayChannel {
	return &GatewayChannel{api: api, session: session, delay: delay, log: log}
}

func (g *GatewayChannel) Send(ctx context.Context, destination, text string) error {
	if !g.session.Ready() {
		return ErrChannelNotReady
	}

	number := utils.NormalizePhone(destination)
	if number == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDestination, destination)
	}

	err := g.api.SendText(ctx, g.session.Instance(), gateway.SendTextRequest{
		Number: number,
		Text:   text,
		Delay:  g.delay,
	})
	if err != nil {
		if !rejected(err) {
			g.session.MarkUnready()
		}
		return fmt.Errorf("gateway send to %s: %w", number, err)
	}
	return nil
}

// rejected reports a request the gateway refused on its merits; the session
// itself is still fine.
func rejected(err error) bool {
	var se *gateway.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusBadRequest || se.StatusCode == http.StatusUnprocessableEntity
}
