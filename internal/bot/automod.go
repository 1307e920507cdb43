package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/wardenbot/warden/internal/bot/constants"
	"github.com/wardenbot/warden/internal/classifier"
	"github.com/wardenbot/warden/internal/platform"
	"go.uber.org/zap"
)

// handleMonitoredMessage runs the automatic moderation path for one message
// in the monitored channel: forward it verbatim to the moderation channel,
// score it, echo the score, and escalate depending on the thresholds.
// A failed classifier call skips scoring but never blocks the forward.
func (b *Bot) handleMonitoredMessage(ctx context.Context, msg *platform.Message) {
	forward := fmt.Sprintf("Forwarded message:\n%s: %q", msg.AuthorName, msg.Content)
	if _, err := b.platform.SendMessage(ctx, b.modChannelID, forward); err != nil {
		b.logger.Error("Failed to forward monitored message", zap.Error(err))
		return
	}

	score, err := b.classifier.Score(ctx, msg.Content)
	if err != nil {
		if errors.Is(err, classifier.ErrUnavailable) {
			b.logger.Warn("Skipping evaluation, classifier unavailable", zap.Error(err))
		} else {
			b.logger.Error("Failed to score message", zap.Error(err))
		}

		return
	}

	echo := fmt.Sprintf("Evaluated message %s with score %.4f", msg.JumpURL(), score)
	if _, err := b.platform.SendMessage(ctx, b.modChannelID, echo); err != nil {
		b.logger.Error("Failed to send score echo", zap.Error(err))
	}

	switch {
	case score >= b.flagThreshold:
		b.escalateMessage(ctx, msg, score)

	case score > b.warnThreshold:
		if _, err := b.platform.SendMessage(ctx, msg.ChannelID, constants.AdvisoryWarning); err != nil {
			b.logger.Error("Failed to send advisory warning", zap.Error(err))
		}
	}
}

// escalateMessage posts the strong in-channel advisory with the support
// resource link and turns the flagged message into an automatic report.
func (b *Bot) escalateMessage(ctx context.Context, msg *platform.Message, score float64) {
	advisory := constants.AdvisoryAlert + b.resourceURL
	if _, err := b.platform.SendMessage(ctx, msg.ChannelID, advisory); err != nil {
		b.logger.Error("Failed to send advisory alert", zap.Error(err))
	}

	if err := b.coordinator.FlagMessage(ctx, msg); err != nil {
		b.logger.Error("Failed to escalate flagged message",
			zap.Uint64("message_id", uint64(msg.ID)),
			zap.Float64("score", score),
			zap.Error(err))
	}
}
