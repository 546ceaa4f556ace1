package domain

// Member is the pricing view of a customer: either Anonymous or Enrolled.
// A nil Member is treated as Anonymous by every engine.
type Member interface {
	isMember()
}

// Anonymous is a visitor without an account or without membership data.
type Anonymous struct{}

func (Anonymous) isMember() {}

// Enrolled is a snapshot of a member's tier and this month's consumption.
type Enrolled struct {
	Tier                   Tier
	UsedThisMonthKm        int64
	SpaceBookingsThisMonth int
}

func (Enrolled) isMember() {}

// TierOf reports the tier carried by m, TierNone for anonymous members.
func TierOf(m Member) Tier {
	if e, ok := m.(Enrolled); ok && e.Tier != "" {
		return e.Tier
	}
	return TierNone
}
