package bot

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenbot/warden/internal/bot/constants"
	"github.com/wardenbot/warden/internal/classifier"
	"github.com/wardenbot/warden/internal/moderation"
	"github.com/wardenbot/warden/internal/platform"
	"github.com/wardenbot/warden/internal/report"
	"go.uber.org/zap"
)

const (
	testModChannelID       = snowflake.ID(900)
	testMonitoredChannelID = snowflake.ID(800)
	testOffenderID         = snowflake.ID(200)
)

type fakeClient struct {
	mu   sync.Mutex
	next snowflake.ID
	sent map[snowflake.ID][]string
}

func newFakeClient() *fakeClient {
	return &fakeClient{sent: make(map[snowflake.ID][]string)}
}

func (f *fakeClient) SendMessage(_ context.Context, channelID snowflake.ID, content string) (snowflake.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.next++
	f.sent[channelID] = append(f.sent[channelID], content)

	return f.next, nil
}

func (f *fakeClient) SendDirectMessage(context.Context, snowflake.ID, string) error { return nil }

func (f *fakeClient) AddReaction(context.Context, snowflake.ID, snowflake.ID, string) error {
	return nil
}

func (f *fakeClient) FetchMessage(context.Context, snowflake.ID, snowflake.ID, snowflake.ID) (*platform.Message, error) {
	return nil, platform.ErrMessageNotFound
}

func (f *fakeClient) messages(channelID snowflake.ID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.sent[channelID]...)
}

// fakeScorer returns a fixed score or error for every text.
type fakeScorer struct {
	score float64
	err   error
}

func (f *fakeScorer) Score(context.Context, string) (float64, error) {
	return f.score, f.err
}

func newTestBot(t *testing.T, scorer Scorer) (*Bot, *fakeClient) {
	t.Helper()

	client := newFakeClient()
	logger := zap.NewNop()

	tree, err := report.ParseTree([]byte(`{"prompt": "Why?", "options": {"Spam": {"final_note": "Thanks."}}}`))
	require.NoError(t, err)

	b := &Bot{
		platform:           client,
		classifier:         scorer,
		logger:             logger,
		monitoredChannelID: testMonitoredChannelID,
		modChannelID:       testModChannelID,
		warnThreshold:      0.4,
		flagThreshold:      0.5,
		resourceURL:        "https://example.org/help",
	}
	b.coordinator = moderation.NewCoordinator(client, tree, testModChannelID, moderation.NewRegistry(logger), logger)

	return b, client
}

func monitoredMessage() *platform.Message {
	return &platform.Message{
		ID:         snowflake.ID(333),
		ChannelID:  testMonitoredChannelID,
		GuildID:    snowflake.ID(111),
		AuthorID:   testOffenderID,
		AuthorName: "offender",
		Content:    "pay me or I share your photos",
	}
}

func TestHandleMonitoredMessage(t *testing.T) {
	ctx := context.Background()

	forward := fmt.Sprintf("Forwarded message:\n%s: %q", "offender", "pay me or I share your photos")

	t.Run("benign score only forwards and echoes", func(t *testing.T) {
		b, client := newTestBot(t, &fakeScorer{score: 0.1})
		msg := monitoredMessage()

		b.handleMonitoredMessage(ctx, msg)

		mod := client.messages(testModChannelID)
		require.Len(t, mod, 2)
		assert.Equal(t, forward, mod[0])
		assert.Equal(t, fmt.Sprintf("Evaluated message %s with score 0.1000", msg.JumpURL()), mod[1])

		assert.Empty(t, client.messages(testMonitoredChannelID))
		assert.Zero(t, b.coordinator.Registry().AutoFlagCount(testOffenderID))
	})

	t.Run("borderline score posts the advisory warning", func(t *testing.T) {
		b, client := newTestBot(t, &fakeScorer{score: 0.45})

		b.handleMonitoredMessage(ctx, monitoredMessage())

		channel := client.messages(testMonitoredChannelID)
		require.Len(t, channel, 1)
		assert.Equal(t, constants.AdvisoryWarning, channel[0])

		// A warning alone never becomes a report.
		assert.Len(t, client.messages(testModChannelID), 2)
		assert.Zero(t, b.coordinator.Registry().AutoFlagCount(testOffenderID))
	})

	t.Run("flagged score escalates to an automatic report", func(t *testing.T) {
		b, client := newTestBot(t, &fakeScorer{score: 0.7})
		msg := monitoredMessage()

		b.handleMonitoredMessage(ctx, msg)

		channel := client.messages(testMonitoredChannelID)
		require.Len(t, channel, 1)
		assert.Equal(t, constants.AdvisoryAlert+"https://example.org/help", channel[0])

		// Forward, echo, then the three-message report bundle.
		mod := client.messages(testModChannelID)
		require.Len(t, mod, 5)
		assert.Equal(t, constants.ReportHeaderMessage, mod[2])
		assert.Contains(t, mod[3], "Report path: "+constants.AutoFlaggedSentinel)
		assert.Equal(t, constants.TriagePromptMessage, mod[4])

		assert.Equal(t, 1, b.coordinator.Registry().AutoFlagCount(testOffenderID))
		assert.Zero(t, b.coordinator.Registry().Count(testOffenderID))
	})

	t.Run("threshold boundaries", func(t *testing.T) {
		t.Run("warn threshold is exclusive", func(t *testing.T) {
			b, client := newTestBot(t, &fakeScorer{score: 0.4})
			b.handleMonitoredMessage(ctx, monitoredMessage())

			assert.Empty(t, client.messages(testMonitoredChannelID))
			assert.Zero(t, b.coordinator.Registry().AutoFlagCount(testOffenderID))
		})

		t.Run("flag threshold is inclusive", func(t *testing.T) {
			b, client := newTestBot(t, &fakeScorer{score: 0.5})
			b.handleMonitoredMessage(ctx, monitoredMessage())

			channel := client.messages(testMonitoredChannelID)
			require.Len(t, channel, 1)
			assert.Contains(t, channel[0], constants.AdvisoryAlert)
			assert.Equal(t, 1, b.coordinator.Registry().AutoFlagCount(testOffenderID))
		})
	})

	t.Run("classifier outage still forwards the message", func(t *testing.T) {
		b, client := newTestBot(t, &fakeScorer{err: classifier.ErrUnavailable})

		b.handleMonitoredMessage(ctx, monitoredMessage())

		mod := client.messages(testModChannelID)
		require.Len(t, mod, 1)
		assert.Equal(t, forward, mod[0])

		assert.Empty(t, client.messages(testMonitoredChannelID))
	})
}
