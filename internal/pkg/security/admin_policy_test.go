package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminPolicy(t *testing.T) {
	p := NewAdminPolicy(" Ops@Example.com, lead@example.com;;\nsecond@example.com ")

	assert.True(t, p.IsAdmin("ops@example.com"))
	assert.True(t, p.IsAdmin("  LEAD@example.com "))
	assert.True(t, p.IsAdmin("second@example.com"))
	assert.False(t, p.IsAdmin("user@example.com"))
	assert.False(t, p.IsAdmin(""))
	assert.ElementsMatch(t, []string{"ops@example.com", "lead@example.com", "second@example.com"}, p.Recipients())
}

func TestAdminPolicy_Empty(t *testing.T) {
	p := NewAdminPolicy("")
	assert.False(t, p.IsAdmin("ops@example.com"))
	assert.Empty(t, p.Recipients())

	var nilPolicy *AdminPolicy
	assert.False(t, nilPolicy.IsAdmin("ops@example.com"))
}
