package moderation

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/wardenbot/warden/internal/bot/constants"
	"github.com/wardenbot/warden/internal/platform"
	"github.com/wardenbot/warden/internal/report"
	"go.uber.org/zap"
)

// Coordinator owns the active-session map, the pending-triage map, and the
// offender registry. Event handling is serialized through a single mutex,
// so no two events ever mutate the same session concurrently.
type Coordinator struct {
	client       platform.Client
	tree         *report.Node
	modChannelID snowflake.ID
	registry     *Registry
	logger       *zap.Logger

	mu       sync.Mutex
	sessions map[snowflake.ID]*report.Session

	// pending has its own lock because sessions register triage prompts
	// re-entrantly while an event is being handled under mu.
	pendingMu sync.Mutex
	pending   map[snowflake.ID]*report.Session
}

// NewCoordinator wires the coordinator with its collaborators. The decision
// tree is shared read-only across all sessions.
func NewCoordinator(
	client platform.Client,
	tree *report.Node,
	modChannelID snowflake.ID,
	registry *Registry,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		client:       client,
		tree:         tree,
		modChannelID: modChannelID,
		registry:     registry,
		logger:       logger.Named("moderation"),
		sessions:     make(map[snowflake.ID]*report.Session),
		pending:      make(map[snowflake.ID]*report.Session),
	}
}

// Registry exposes the offender registry.
func (c *Coordinator) Registry() *Registry { return c.registry }

// ActiveSessions returns the number of non-terminal manual report sessions.
func (c *Coordinator) ActiveSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.sessions)
}

// RegisterTriage records an outstanding triage prompt so the next reaction
// on it routes back to the session. Implements report.TriageRegistrar.
func (c *Coordinator) RegisterTriage(promptID snowflake.ID, session *report.Session) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	c.pending[promptID] = session
}

// consumeTriage atomically removes and returns the pending entry for a
// prompt. Registrations are single-use: once consumed, later reactions on
// the same prompt find nothing.
func (c *Coordinator) consumeTriage(promptID snowflake.ID) *report.Session {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	session, ok := c.pending[promptID]
	if !ok {
		return nil
	}

	delete(c.pending, promptID)

	return session
}

// HandleDirectMessage routes one DM from a user into the manual report flow
// and returns the replies to send back. The help keyword answers with usage
// text without touching any session; messages from users with no active
// session are ignored unless they are the start keyword.
func (c *Coordinator) HandleDirectMessage(
	ctx context.Context, userID snowflake.ID, username, content string,
) ([]string, error) {
	if content == constants.HelpKeyword {
		return []string{constants.HelpMessage}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions[userID]
	if !ok {
		if content != constants.StartKeyword {
			return nil, nil
		}

		session = report.NewSession(c.client, c, c.tree, c.modChannelID, userID, username, c.logger)
		c.sessions[userID] = session

		c.logger.Info("Started report session", zap.Uint64("user_id", uint64(userID)))
	}

	replies, err := session.HandleMessage(ctx, content)

	if session.Complete() {
		delete(c.sessions, userID)
		c.logger.Info("Closed report session",
			zap.Uint64("user_id", uint64(userID)),
			zap.String("report_id", session.ID()))
	}

	return replies, err
}

// HandleReaction routes one reaction event to the session awaiting it. The
// pending entry is consumed before the emoji is inspected, so a stale or
// repeated reaction on the same prompt is a no-op.
func (c *Coordinator) HandleReaction(ctx context.Context, promptID snowflake.ID, emoji string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := c.consumeTriage(promptID)
	if session == nil {
		c.logger.Debug("Reaction on unknown or consumed prompt",
			zap.Uint64("prompt_id", uint64(promptID)))
		return nil
	}

	err := session.HandleReaction(ctx, emoji, c.registry)

	if session.Complete() {
		c.purgeSession(session)
	}

	return err
}

// FlagMessage synthesizes an automatic report for a classifier-flagged
// message, forwards it to moderation, and counts the flag against the
// author.
func (c *Coordinator) FlagMessage(ctx context.Context, msg *platform.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := report.NewAutomaticSession(c.client, c, c.modChannelID, msg, c.logger)
	if err := session.Forward(ctx); err != nil {
		return err
	}

	flags := c.registry.IncrementAutoFlag(msg.AuthorID)

	c.logger.Info("Escalated flagged message",
		zap.Uint64("author_id", uint64(msg.AuthorID)),
		zap.String("report_id", session.ID()),
		zap.Int("auto_flags", flags))

	return nil
}

// purgeSession drops a terminal manual session from the active map. Called
// with mu held. Automatic sessions never enter the map.
func (c *Coordinator) purgeSession(session *report.Session) {
	reporterID := session.ReporterID()
	if reporterID == 0 {
		return
	}

	if current, ok := c.sessions[reporterID]; ok && current == session {
		delete(c.sessions, reporterID)
		c.logger.Info("Closed report session",
			zap.Uint64("user_id", uint64(reporterID)),
			zap.String("report_id", session.ID()))
	}
}
