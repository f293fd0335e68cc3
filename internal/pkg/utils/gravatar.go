package utils

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
)

const defaultAvatarSize = 200

// AvatarURL prefers an avatar stored on the account (e.g. from Google) and
// falls back to the Gravatar of email with the "mystery person" default.
func AvatarURL(stored, email string, size int) string {
	if stored = strings.TrimSpace(stored); stored != "" {
		return stored
	}
	if size <= 0 {
		size = defaultAvatarSize
	}
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	q := url.Values{"s": {strconv.Itoa(size)}, "d": {"mp"}}
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?" + q.Encode()
}
