package report

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/wardenbot/warden/internal/bot/constants"
	"github.com/wardenbot/warden/internal/platform"
	"go.uber.org/zap"
)

// State identifies a report session's position in its lifecycle.
type State int

const (
	StateStart State = iota
	StateAwaitingMessage
	StateInReportingFlow
	StateAwaitingDetails
	StateFinished
	StateAwaitingModeration
	StateDetermineSeverity
	StateComplete
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateAwaitingMessage:
		return "awaiting_message"
	case StateInReportingFlow:
		return "in_reporting_flow"
	case StateAwaitingDetails:
		return "awaiting_details"
	case StateFinished:
		return "finished"
	case StateAwaitingModeration:
		return "awaiting_moderation"
	case StateDetermineSeverity:
		return "determine_severity"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Message links carry three slash-separated numeric segments; the pattern is
// searched anywhere in the text, so surrounding content is ignored.
var linkPattern = regexp.MustCompile(`/(\d+)/(\d+)/(\d+)`)

// OffenderRegistry records confirmed minor infractions. The post-increment
// count selects the sanction tier.
type OffenderRegistry interface {
	Increment(userID snowflake.ID) int
}

// TriageRegistrar tracks outstanding triage prompts so moderator reactions
// can be routed back to the session that posted them.
type TriageRegistrar interface {
	RegisterTriage(promptID snowflake.ID, session *Session)
}

// Session walks one user through a single abuse report: resolving the
// reported message, traversing the questionnaire tree, collecting free-text
// details, and reacting to moderator verdicts. A session is single-use and
// is discarded once it reaches StateComplete.
type Session struct {
	client       platform.Client
	registrar    TriageRegistrar
	logger       *zap.Logger
	tree         *Node
	modChannelID snowflake.ID

	id           string
	reporterID   snowflake.ID
	reporterName string

	state    State
	reported *platform.Message
	node     *Node
	path     []string
	note     string
	skipped  bool
}

// NewSession starts a manual report for the given user.
func NewSession(
	client platform.Client,
	registrar TriageRegistrar,
	tree *Node,
	modChannelID snowflake.ID,
	reporterID snowflake.ID,
	reporterName string,
	logger *zap.Logger,
) *Session {
	return &Session{
		client:       client,
		registrar:    registrar,
		logger:       logger.Named("report"),
		tree:         tree,
		modChannelID: modChannelID,
		id:           uuid.NewString(),
		reporterID:   reporterID,
		reporterName: reporterName,
		state:        StateStart,
		node:         tree,
	}
}

// NewAutomaticSession builds a report for a classifier-flagged message,
// pre-seeded at StateFinished so it bypasses the questionnaire. The caller
// forwards it with Forward.
func NewAutomaticSession(
	client platform.Client,
	registrar TriageRegistrar,
	modChannelID snowflake.ID,
	flagged *platform.Message,
	logger *zap.Logger,
) *Session {
	return &Session{
		client:       client,
		registrar:    registrar,
		logger:       logger.Named("report"),
		modChannelID: modChannelID,
		id:           uuid.NewString(),
		state:        StateFinished,
		reported:     flagged,
		path:         []string{constants.AutoFlaggedSentinel},
	}
}

// ID returns the report's identifier used in the moderation channel bundle.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Complete reports whether the session is terminal.
func (s *Session) Complete() bool { return s.state == StateComplete }

// ReporterID returns the reporting user's ID. Zero for automatic reports.
func (s *Session) ReporterID() snowflake.ID { return s.reporterID }

// Reported returns the message under report, once resolved.
func (s *Session) Reported() *platform.Message { return s.reported }

// Path returns the chosen questionnaire option labels in order.
func (s *Session) Path() []string { return s.path }

// Note returns the reporter's free-text details.
func (s *Session) Note() string { return s.note }

// Skipped reports whether the reporter skipped the questionnaire.
func (s *Session) Skipped() bool { return s.skipped }

// HandleMessage advances the session with one message from the reporter and
// returns the replies to send back over DM. The cancel keyword short-circuits
// every non-terminal state.
func (s *Session) HandleMessage(ctx context.Context, content string) ([]string, error) {
	if content == constants.CancelKeyword {
		s.state = StateComplete
		return []string{constants.CancelledMessage}, nil
	}

	switch s.state {
	case StateStart:
		s.state = StateAwaitingMessage
		return []string{constants.StartMessage}, nil

	case StateAwaitingMessage:
		return s.handleMessageLink(ctx, content)

	case StateInReportingFlow:
		return s.handleChoice(content), nil

	case StateAwaitingDetails:
		return s.handleDetails(ctx, content)

	default:
		// Moderation states are driven by reactions; reporter messages
		// are ignored until the session terminates.
		return nil, nil
	}
}

// handleMessageLink resolves the reported message from a pasted link. Every
// failure keeps the session in StateAwaitingMessage so the reporter can retry.
func (s *Session) handleMessageLink(ctx context.Context, content string) ([]string, error) {
	match := linkPattern.FindStringSubmatch(content)
	if match == nil {
		return []string{constants.InvalidLinkMessage}, nil
	}

	guildID, err1 := snowflake.Parse(match[1])
	channelID, err2 := snowflake.Parse(match[2])
	messageID, err3 := snowflake.Parse(match[3])

	if err1 != nil || err2 != nil || err3 != nil {
		return []string{constants.InvalidLinkMessage}, nil
	}

	msg, err := s.client.FetchMessage(ctx, guildID, channelID, messageID)
	if err != nil {
		switch {
		case errors.Is(err, platform.ErrGuildNotFound):
			return []string{constants.GuildNotFoundMessage}, nil
		case errors.Is(err, platform.ErrChannelNotFound):
			return []string{constants.ChannelNotFoundMessage}, nil
		case errors.Is(err, platform.ErrMessageNotFound):
			return []string{constants.MessageNotFoundMessage}, nil
		default:
			return nil, fmt.Errorf("failed to resolve reported message: %w", err)
		}
	}

	s.reported = msg
	s.state = StateInReportingFlow
	s.node = s.tree

	return []string{RenderNode(s.node)}, nil
}

// handleChoice interprets a 1-based questionnaire choice. Out-of-range or
// non-numeric input re-renders the current node unchanged.
func (s *Session) handleChoice(content string) []string {
	choice, err := strconv.Atoi(strings.TrimSpace(content))
	if err != nil || choice < 1 || choice > len(s.node.Options)+1 {
		return []string{constants.InvalidChoiceMessage, RenderNode(s.node)}
	}

	// The slot one past the last option skips the rest of the questionnaire.
	if choice == len(s.node.Options)+1 {
		s.path = append(s.path, constants.SkippedSentinel)
		s.skipped = true
		s.state = StateAwaitingDetails

		return []string{constants.DetailsPromptMessage}
	}

	option := s.node.Options[choice-1]
	s.path = append(s.path, option.Label)
	s.node = option.Node

	if !s.node.IsLeaf() {
		return []string{RenderNode(s.node)}
	}

	s.state = StateAwaitingDetails

	replies := make([]string, 0, 2)
	if s.node.FinalNote != "" {
		replies = append(replies, s.node.FinalNote)
	}

	return append(replies, constants.DetailsPromptMessage)
}

// handleDetails stores the free-text note, truncated to MaxNoteLength
// characters, and hands the report off to moderation.
func (s *Session) handleDetails(ctx context.Context, content string) ([]string, error) {
	s.note = truncateRunes(content, constants.MaxNoteLength)
	s.state = StateFinished

	if err := s.Forward(ctx); err != nil {
		return nil, err
	}

	return []string{constants.ReportReceivedMessage}, nil
}

// Forward composes the report bundle, posts it with the yes/no triage prompt
// to the moderation channel, and registers the prompt for reaction routing.
// Valid only in StateFinished; the transition's sends happen exactly once.
func (s *Session) Forward(ctx context.Context) error {
	if s.state != StateFinished {
		return fmt.Errorf("cannot forward report in state %s", s.state)
	}

	if _, err := s.client.SendMessage(ctx, s.modChannelID, constants.ReportHeaderMessage); err != nil {
		return err
	}

	if _, err := s.client.SendMessage(ctx, s.modChannelID, s.bundle()); err != nil {
		return err
	}

	promptID, err := s.client.SendMessage(ctx, s.modChannelID, constants.TriagePromptMessage)
	if err != nil {
		return err
	}

	s.addReactions(ctx, promptID, constants.ConfirmEmoji, constants.RejectEmoji)
	s.registrar.RegisterTriage(promptID, s)
	s.state = StateAwaitingModeration

	return nil
}

// bundle renders the full report for moderators: identifiers, the quoted
// message, the jump link, the chosen questionnaire path, and the note.
func (s *Session) bundle() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Report `%s`\n", s.id)
	fmt.Fprintf(&b, "Reported message from %s:\n", s.reported.AuthorName)
	fmt.Fprintf(&b, "> %s\n", s.reported.Content)
	fmt.Fprintf(&b, "Message link: %s\n", s.reported.JumpURL())
	fmt.Fprintf(&b, "Report path: %s\n", strings.Join(s.path, " > "))

	if s.note != "" {
		fmt.Fprintf(&b, "Additional details: %s", s.note)
	} else {
		b.WriteString("Additional details: none")
	}

	return b.String()
}

// HandleReaction advances the session with one moderator reaction on its
// outstanding prompt. Unrecognized emoji leave the state unchanged; the
// caller has already consumed the prompt registration either way.
func (s *Session) HandleReaction(ctx context.Context, emoji string, registry OffenderRegistry) error {
	switch s.state {
	case StateAwaitingModeration:
		return s.handleTriageReaction(ctx, emoji)
	case StateDetermineSeverity:
		return s.handleSeverityReaction(ctx, emoji, registry)
	default:
		s.logger.Debug("Reaction ignored in non-moderation state",
			zap.String("state", s.state.String()),
			zap.String("emoji", emoji))
		return nil
	}
}

func (s *Session) handleTriageReaction(ctx context.Context, emoji string) error {
	switch emoji {
	case constants.RejectEmoji:
		s.state = StateComplete

		_, err := s.client.SendMessage(ctx, s.modChannelID, constants.TriageRejectedMessage)
		return err

	case constants.ConfirmEmoji:
		if _, err := s.client.SendMessage(ctx, s.modChannelID, constants.TriageConfirmedMessage); err != nil {
			return err
		}

		promptID, err := s.client.SendMessage(ctx, s.modChannelID, constants.SeverityPromptMessage)
		if err != nil {
			return err
		}

		s.addReactions(ctx, promptID, constants.MinorEmoji, constants.MajorEmoji)
		s.registrar.RegisterTriage(promptID, s)
		s.state = StateDetermineSeverity

		return nil

	default:
		return nil
	}
}

func (s *Session) handleSeverityReaction(ctx context.Context, emoji string, registry OffenderRegistry) error {
	switch emoji {
	case constants.MinorEmoji:
		count := registry.Increment(s.reported.AuthorID)
		return s.applySanction(ctx, SanctionFor(count), count)

	case constants.MajorEmoji:
		notice := fmt.Sprintf("Banning user %s, major infraction", s.reported.AuthorName)
		return s.closeWithSanction(ctx, notice, constants.RemoveNotice)

	default:
		return nil
	}
}

// applySanction enforces the tier selected by the post-increment infraction
// count: warn for the first two, a temporary suspension for the third, and
// permanent removal from the fourth onwards.
func (s *Session) applySanction(ctx context.Context, sanction Sanction, count int) error {
	var modNotice, userNotice string

	switch sanction {
	case SanctionWarn:
		modNotice = fmt.Sprintf("Warning user %s, minor infraction number %d", s.reported.AuthorName, count)
		userNotice = constants.WarnNotice
	case SanctionSuspend:
		modNotice = fmt.Sprintf("Suspending user %s, minor infraction number %d", s.reported.AuthorName, count)
		userNotice = constants.SuspendNotice
	case SanctionRemove:
		modNotice = fmt.Sprintf("Banning user %s, minor infraction number %d", s.reported.AuthorName, count)
		userNotice = constants.RemoveNotice
	}

	return s.closeWithSanction(ctx, modNotice, userNotice)
}

func (s *Session) closeWithSanction(ctx context.Context, modNotice, userNotice string) error {
	if _, err := s.client.SendMessage(ctx, s.modChannelID, modNotice); err != nil {
		return err
	}

	// A closed DM channel must not block closing the report.
	if err := s.client.SendDirectMessage(ctx, s.reported.AuthorID, userNotice); err != nil {
		s.logger.Warn("Failed to notify sanctioned user",
			zap.Uint64("user_id", uint64(s.reported.AuthorID)),
			zap.Error(err))
	}

	s.state = StateComplete

	_, err := s.client.SendMessage(ctx, s.modChannelID, constants.ReportClosedMessage)
	return err
}

// addReactions attaches the moderator reaction choices concurrently; a failed
// attachment is logged but does not fail the transition since moderators can
// still react manually.
func (s *Session) addReactions(ctx context.Context, messageID snowflake.ID, emojis ...string) {
	var wg conc.WaitGroup

	for _, emoji := range emojis {
		wg.Go(func() {
			if err := s.client.AddReaction(ctx, s.modChannelID, messageID, emoji); err != nil {
				s.logger.Warn("Failed to add reaction",
					zap.String("emoji", emoji),
					zap.Error(err))
			}
		})
	}

	wg.Wait()
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit])
}
