package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// Number of extra attempts for transient REST send failures.
const sendRetries = 2

// DiscordClient implements Client on top of the disgo REST API.
type DiscordClient struct {
	client bot.Client
	logger *zap.Logger
}

// NewDiscordClient wraps a disgo client in the platform interface.
func NewDiscordClient(client bot.Client, logger *zap.Logger) *DiscordClient {
	return &DiscordClient{
		client: client,
		logger: logger.Named("platform"),
	}
}

// SendMessage posts text to a channel, retrying transient failures with
// exponential backoff before giving up.
func (c *DiscordClient) SendMessage(ctx context.Context, channelID snowflake.ID, content string) (snowflake.ID, error) {
	var msg *discord.Message

	operation := func() error {
		var err error

		msg, err = c.client.Rest().CreateMessage(
			channelID,
			discord.NewMessageCreateBuilder().SetContent(content).Build(),
			rest.WithCtx(ctx),
		)

		return err
	}

	if err := backoff.Retry(operation, c.sendBackoff(ctx)); err != nil {
		return 0, fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}

	return msg.ID, nil
}

// SendDirectMessage opens (or reuses) the user's DM channel and delivers the text.
func (c *DiscordClient) SendDirectMessage(ctx context.Context, userID snowflake.ID, content string) error {
	dmChannel, err := c.client.Rest().CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel for user %s: %w", userID, err)
	}

	if _, err := c.SendMessage(ctx, dmChannel.ID(), content); err != nil {
		return err
	}

	return nil
}

// AddReaction attaches a unicode emoji to an existing message.
func (c *DiscordClient) AddReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string) error {
	if err := c.client.Rest().AddReaction(channelID, messageID, emoji, rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("failed to add reaction %s: %w", emoji, err)
	}

	return nil
}

// FetchMessage resolves a guild/channel/message triple step by step so each
// failure maps to its own sentinel error.
func (c *DiscordClient) FetchMessage(ctx context.Context, guildID, channelID, messageID snowflake.ID) (*Message, error) {
	if _, err := c.client.Rest().GetGuild(guildID, false, rest.WithCtx(ctx)); err != nil {
		c.logger.Debug("Guild lookup failed", zap.Uint64("guild_id", uint64(guildID)), zap.Error(err))
		return nil, ErrGuildNotFound
	}

	channel, err := c.client.Rest().GetChannel(channelID, rest.WithCtx(ctx))
	if err != nil {
		c.logger.Debug("Channel lookup failed", zap.Uint64("channel_id", uint64(channelID)), zap.Error(err))
		return nil, ErrChannelNotFound
	}

	// A channel ID from another guild must not resolve under this guild.
	if guildChannel, ok := channel.(discord.GuildChannel); ok && guildChannel.GuildID() != guildID {
		return nil, ErrChannelNotFound
	}

	msg, err := c.client.Rest().GetMessage(channelID, messageID, rest.WithCtx(ctx))
	if err != nil {
		c.logger.Debug("Message lookup failed", zap.Uint64("message_id", uint64(messageID)), zap.Error(err))
		return nil, ErrMessageNotFound
	}

	return &Message{
		ID:         msg.ID,
		ChannelID:  msg.ChannelID,
		GuildID:    guildID,
		AuthorID:   msg.Author.ID,
		AuthorName: msg.Author.EffectiveName(),
		Content:    msg.Content,
	}, nil
}

func (c *DiscordClient) sendBackoff(ctx context.Context) backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 10 * time.Second

	return backoff.WithContext(backoff.WithMaxRetries(policy, sendRetries), ctx)
}
