package entitlements

import "strings"

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

type Status string

const (
	StatusFree      Status = "free"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Unlimited is returned by MaxVisibleCount when no per-list limit applies.
const Unlimited = -1

// freeVisibleCount is the number of ordered items a non-premium user can open.
const freeVisibleCount = 1

// State is the subscription shape the policy decides on.
type State struct {
	Tier   Tier   `json:"tier"`
	Status Status `json:"status"`
}

func Free() State {
	return State{Tier: TierFree, Status: StatusFree}
}

// Grant is the state produced by a purchase, renewal or un-cancellation.
func Grant() State {
	return State{Tier: TierPremium, Status: StatusActive}
}

// Revoke is the state produced by a cancellation, expiration or billing issue.
func Revoke() State {
	return State{Tier: TierFree, Status: StatusExpired}
}

// FromSnapshot maps a client-reported premium entitlement flag to a state.
func FromSnapshot(isActive bool) State {
	if isActive {
		return Grant()
	}
	return Free()
}

func ParseTier(raw string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierPremium:
		return TierPremium
	default:
		return TierFree
	}
}

func ParseStatus(raw string) Status {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusActive, StatusExpired, StatusCancelled:
		return s
	default:
		return StatusFree
	}
}

// Normalize maps unknown tier or status values to their free counterparts.
func (s State) Normalize() State {
	return State{Tier: ParseTier(string(s.Tier)), Status: ParseStatus(string(s.Status))}
}

// Consistent reports whether tier == premium exactly when status == active.
func Consistent(s State) bool {
	if s.Tier != TierPremium && s.Tier != TierFree {
		return false
	}
	switch s.Status {
	case StatusFree, StatusActive, StatusExpired, StatusCancelled:
	default:
		return false
	}
	return (s.Tier == TierPremium) == (s.Status == StatusActive)
}

func CanAccessPremiumContent(s State) bool {
	n := s.Normalize()
	return n.Tier == TierPremium && n.Status == StatusActive
}

// CanAccessAtIndex decides access to the item at a 0-based position of an ordered list.
func CanAccessAtIndex(s State, index int) bool {
	if index < 0 {
		return false
	}
	if CanAccessPremiumContent(s) {
		return true
	}
	return index == 0
}

func MaxVisibleCount(s State) int {
	if CanAccessPremiumContent(s) {
		return Unlimited
	}
	return freeVisibleCount
}
