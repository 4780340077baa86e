// Package console relays whitelist commands to the game server console
// channels.
package console

import (
	"context"

	"whitelist-bot/internal/card"
	commonerrors "whitelist-bot/internal/common/errors"
	"whitelist-bot/internal/common/logger"
	"whitelist-bot/internal/gateway"
)

// Relay forwards whitelist-add commands to every configured console
// channel. Delivery is fire and forget: per-channel failures are logged
// and do not abort the approval flow.
type Relay struct {
	messenger gateway.Messenger
	channels  []string
	log       logger.Logger
}

func NewRelay(messenger gateway.Messenger, channels []string, log logger.Logger) *Relay {
	return &Relay{
		messenger: messenger,
		channels:  channels,
		log:       log,
	}
}

// WhitelistAdd sends `whitelist add <name>` to each console channel. The
// name is unescaped first because the card formatter escapes underscores
// for display.
func (r *Relay) WhitelistAdd(ctx context.Context, name string) {
	command := "whitelist add " + card.Unescape(name)
	for _, channelID := range r.channels {
		if _, err := r.messenger.SendText(ctx, channelID, command); err != nil {
			r.log.WithError(commonerrors.NewGatewaySendFailedError(channelID, err)).Error("console relay failed", map[string]interface{}{
				"channel_id": channelID,
				"command":    command,
			})
			continue
		}
		r.log.Info("console command relayed", map[string]interface{}{
			"channel_id": channelID,
			"command":    command,
		})
	}
}
