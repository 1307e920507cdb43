package report

// Sanction is the enforcement action applied after a confirmed minor
// infraction, tiered on the offender's post-increment infraction count.
type Sanction int

const (
	SanctionWarn Sanction = iota
	SanctionSuspend
	SanctionRemove
)

// String returns the sanction name for logging.
func (s Sanction) String() string {
	switch s {
	case SanctionWarn:
		return "warn"
	case SanctionSuspend:
		return "suspend"
	case SanctionRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// SanctionFor maps a confirmed infraction count to its sanction tier.
// It is a pure function of the count: the first two infractions warn, the
// third suspends, and every infraction from the fourth removes.
func SanctionFor(count int) Sanction {
	switch {
	case count <= 2:
		return SanctionWarn
	case count == 3:
		return SanctionSuspend
	default:
		return SanctionRemove
	}
}
