package moderation

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// Registry tracks per-user violation counts for the lifetime of the process.
// Counts are never decremented and are not persisted across restarts.
//
// Two counters are kept separately: confirmed infractions (incremented only
// by a moderator-confirmed minor verdict, and the sole input to sanction
// tiers) and automatic flags (incremented on every classifier escalation,
// informational only). Keeping them apart means nobody is sanctioned
// without a moderator verdict.
type Registry struct {
	mu        sync.Mutex
	confirmed map[snowflake.ID]int
	autoFlags map[snowflake.ID]int
	logger    *zap.Logger
}

// NewRegistry returns an empty offender registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		confirmed: make(map[snowflake.ID]int),
		autoFlags: make(map[snowflake.ID]int),
		logger:    logger.Named("registry"),
	}
}

// Increment records a moderator-confirmed minor infraction and returns the
// new count.
func (r *Registry) Increment(userID snowflake.ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.confirmed[userID]++
	count := r.confirmed[userID]

	r.logger.Info("Recorded confirmed infraction",
		zap.Uint64("user_id", uint64(userID)),
		zap.Int("count", count))

	return count
}

// Count returns the user's confirmed infraction count.
func (r *Registry) Count(userID snowflake.ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.confirmed[userID]
}

// IncrementAutoFlag records an automatic classifier escalation and returns
// the new flag count. Automatic flags never drive sanctions.
func (r *Registry) IncrementAutoFlag(userID snowflake.ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.autoFlags[userID]++

	return r.autoFlags[userID]
}

// AutoFlagCount returns the user's automatic flag count.
func (r *Registry) AutoFlagCount(userID snowflake.ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.autoFlags[userID]
}
