package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
)

var (
	ErrGuildNotFound   = errors.New("guild not found or bot is not a member")
	ErrChannelNotFound = errors.New("channel not found")
	ErrMessageNotFound = errors.New("message not found")
)

// Message is the subset of a chat message that moderation cares about.
type Message struct {
	ID         snowflake.ID
	ChannelID  snowflake.ID
	GuildID    snowflake.ID
	AuthorID   snowflake.ID
	AuthorName string
	Content    string
}

// JumpURL returns the canonical link to the message.
func (m *Message) JumpURL() string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", m.GuildID, m.ChannelID, m.ID)
}

// Client is the platform collaborator consumed by the report and moderation
// packages. Implementations translate these calls into Discord REST requests;
// tests substitute an in-memory fake.
type Client interface {
	// SendMessage posts text to a channel and returns the new message's ID.
	SendMessage(ctx context.Context, channelID snowflake.ID, content string) (snowflake.ID, error)

	// SendDirectMessage delivers text to a user's DM channel.
	SendDirectMessage(ctx context.Context, userID snowflake.ID, content string) error

	// AddReaction attaches a unicode emoji to an existing message.
	AddReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string) error

	// FetchMessage resolves a guild/channel/message ID triple. Each failed
	// resolution step returns its own sentinel error so callers can report
	// the specific failure to the user.
	FetchMessage(ctx context.Context, guildID, channelID, messageID snowflake.ID) (*Message, error)
}
