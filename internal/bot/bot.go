package bot

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	"github.com/wardenbot/warden/internal/moderation"
	"github.com/wardenbot/warden/internal/platform"
	"github.com/wardenbot/warden/internal/report"
	"github.com/wardenbot/warden/internal/setup/config"
	"go.uber.org/zap"
)

// Scorer is the classifier gateway consumed by the automatic moderation
// path. Satisfied by classifier.Client.
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// Bot wires the Discord gateway to the moderation components. Inbound events
// are routed to the manual report flow (DMs), the automatic classifier flow
// (the monitored guild channel), or the moderator reaction flow (triage
// prompts). Listeners run synchronously on the gateway loop, so events are
// handled one at a time in arrival order.
type Bot struct {
	client      bot.Client
	platform    platform.Client
	coordinator *moderation.Coordinator
	classifier  Scorer
	logger      *zap.Logger

	monitoredChannelID snowflake.ID
	modChannelID       snowflake.ID
	warnThreshold      float64
	flagThreshold      float64
	resourceURL        string

	selfUserID snowflake.ID
}

// New builds the bot, its Discord client, and the moderation coordinator.
func New(
	cfg *config.BotConfig,
	tree *report.Node,
	classifierClient Scorer,
	logger *zap.Logger,
) (*Bot, error) {
	b := &Bot{
		classifier:         classifierClient,
		logger:             logger.Named("bot"),
		monitoredChannelID: snowflake.ID(cfg.Channels.MonitoredChannelID),
		modChannelID:       snowflake.ID(cfg.Channels.ModChannelID),
		warnThreshold:      cfg.Automod.WarnThreshold,
		flagThreshold:      cfg.Automod.FlagThreshold,
		resourceURL:        cfg.Automod.ResourceURL,
	}

	client, err := disgo.New(cfg.Discord.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMessageReactions,
				gateway.IntentDirectMessages,
				gateway.IntentMessageContent,
			),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnReady:                   b.handleReady,
			OnMessageCreate:           b.handleMessageCreate,
			OnGuildMessageReactionAdd: b.handleReactionAdd,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord client: %w", err)
	}

	b.client = client
	b.platform = platform.NewDiscordClient(client, logger)
	b.coordinator = moderation.NewCoordinator(
		b.platform, tree, b.modChannelID, moderation.NewRegistry(logger), logger,
	)

	return b, nil
}

// Coordinator exposes the moderation coordinator.
func (b *Bot) Coordinator() *moderation.Coordinator { return b.coordinator }

// Start opens the gateway connection and begins receiving events.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")
	return b.client.OpenGateway(ctx)
}

// Close gracefully shuts down the gateway connection.
func (b *Bot) Close(ctx context.Context) {
	b.logger.Info("Closing bot")
	b.client.Close(ctx)
}

func (b *Bot) handleReady(event *events.Ready) {
	b.selfUserID = event.User.ID

	b.logger.Info("Connected to Discord",
		zap.String("username", event.User.Username),
		zap.Int("guilds", len(event.Guilds)))
}

// handleMessageCreate routes an inbound message by origin: DMs feed the
// manual report flow, the monitored guild channel feeds the classifier flow,
// and everything else is ignored. The bot's own messages are always dropped.
func (b *Bot) handleMessageCreate(event *events.MessageCreate) {
	if event.Message.Author.ID == b.selfUserID {
		return
	}

	ctx := context.Background()

	if event.GuildID == nil {
		b.handleDirectMessage(ctx, event)
		return
	}

	if event.ChannelID == b.monitoredChannelID {
		b.handleMonitoredMessage(ctx, &platform.Message{
			ID:         event.MessageID,
			ChannelID:  event.ChannelID,
			GuildID:    *event.GuildID,
			AuthorID:   event.Message.Author.ID,
			AuthorName: event.Message.Author.EffectiveName(),
			Content:    event.Message.Content,
		})
	}
}

func (b *Bot) handleDirectMessage(ctx context.Context, event *events.MessageCreate) {
	replies, err := b.coordinator.HandleDirectMessage(
		ctx,
		event.Message.Author.ID,
		event.Message.Author.EffectiveName(),
		event.Message.Content,
	)
	if err != nil {
		b.logger.Error("Failed to handle direct message",
			zap.Uint64("user_id", uint64(event.Message.Author.ID)),
			zap.Error(err))
	}

	for _, reply := range replies {
		if _, err := b.platform.SendMessage(ctx, event.ChannelID, reply); err != nil {
			b.logger.Error("Failed to send reply", zap.Error(err))
			return
		}
	}
}

// handleReactionAdd routes moderator reactions to the coordinator. Only
// guild reactions matter: triage prompts are always posted in the moderation
// channel.
func (b *Bot) handleReactionAdd(event *events.GuildMessageReactionAdd) {
	if event.UserID == b.selfUserID {
		return
	}

	if event.Emoji.Name == nil {
		return
	}

	if err := b.coordinator.HandleReaction(context.Background(), event.MessageID, *event.Emoji.Name); err != nil {
		b.logger.Error("Failed to handle reaction",
			zap.Uint64("message_id", uint64(event.MessageID)),
			zap.Error(err))
	}
}
