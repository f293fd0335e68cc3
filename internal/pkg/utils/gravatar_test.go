package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvatarURL(t *testing.T) {
	assert.Equal(t,
		"https://www.gravatar.com/avatar/0bc83cb571cd1c50ba6f3e8a78ef1346?d=mp&s=200",
		AvatarURL("", "  MyEmailAddress@example.com ", 0))
	assert.Contains(t, AvatarURL("", "a@b.c", 64), "s=64")
	assert.Equal(t, "https://lh3.example/p.png", AvatarURL(" https://lh3.example/p.png ", "a@b.c", 64))
}
