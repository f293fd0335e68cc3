package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanAccessPremiumContent(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{name: "premium active", state: Grant(), want: true},
		{name: "free", state: Free(), want: false},
		{name: "revoked", state: Revoke(), want: false},
		{name: "premium but cancelled", state: State{Tier: TierPremium, Status: StatusCancelled}, want: false},
		{name: "free tier but active", state: State{Tier: TierFree, Status: StatusActive}, want: false},
		{name: "unknown tier", state: State{Tier: "gold", Status: StatusActive}, want: false},
		{name: "unknown status", state: State{Tier: TierPremium, Status: "trialing"}, want: false},
		{name: "empty", state: State{}, want: false},
		{name: "mixed case values", state: State{Tier: "PREMIUM", Status: " Active "}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccessPremiumContent(tt.state))
		})
	}
}

func TestCanAccessAtIndex_FailsClosed(t *testing.T) {
	nonActive := []State{
		Free(),
		Revoke(),
		{Tier: TierFree, Status: StatusCancelled},
		{Tier: TierPremium, Status: StatusExpired},
		{Tier: "unknown", Status: "unknown"},
	}

	for _, s := range nonActive {
		assert.True(t, CanAccessAtIndex(s, 0), "index 0 should be open for %+v", s)
		for i := 1; i < 50; i++ {
			assert.False(t, CanAccessAtIndex(s, i), "index %d should be locked for %+v", i, s)
		}
	}
}

func TestCanAccessAtIndex_Premium(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.True(t, CanAccessAtIndex(Grant(), i))
	}
	assert.False(t, CanAccessAtIndex(Grant(), -1))
	assert.False(t, CanAccessAtIndex(Free(), -1))
}

func TestMaxVisibleCount(t *testing.T) {
	assert.Equal(t, Unlimited, MaxVisibleCount(Grant()))
	assert.Equal(t, 1, MaxVisibleCount(Free()))
	assert.Equal(t, 1, MaxVisibleCount(Revoke()))
	assert.Equal(t, 1, MaxVisibleCount(State{Tier: "premium", Status: "bogus"}))
}

func TestTransitionsStayConsistent(t *testing.T) {
	for _, s := range []State{Free(), Grant(), Revoke(), FromSnapshot(true), FromSnapshot(false)} {
		assert.True(t, Consistent(s), "%+v should be consistent", s)
	}

	assert.False(t, Consistent(State{Tier: TierPremium, Status: StatusExpired}))
	assert.False(t, Consistent(State{Tier: TierFree, Status: StatusActive}))
	assert.False(t, Consistent(State{Tier: "gold", Status: StatusFree}))
	assert.False(t, Consistent(State{Tier: TierFree, Status: "paused"}))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Free(), State{}.Normalize())
	assert.Equal(t, State{Tier: TierFree, Status: StatusCancelled}, State{Tier: "x", Status: "CANCELLED"}.Normalize())
	assert.Equal(t, Grant(), State{Tier: "Premium", Status: "active"}.Normalize())
}

func TestScenarioPurchaseThenCancel(t *testing.T) {
	s := Free()
	assert.False(t, CanAccessAtIndex(s, 5))

	s = Grant()
	assert.True(t, CanAccessAtIndex(s, 5))

	s = Revoke()
	assert.Equal(t, TierFree, s.Tier)
	assert.Equal(t, StatusExpired, s.Status)
	assert.False(t, CanAccessAtIndex(s, 1))
	assert.True(t, CanAccessAtIndex(s, 0))
}
