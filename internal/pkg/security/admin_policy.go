package security

import (
	"strings"
)

// AdminPolicy decides which accounts may use the admin API. The email list
// is read once at startup and never changes at runtime.
type AdminPolicy struct {
	emails map[string]struct{}
}

// NewAdminPolicy parses a comma or whitespace separated list of admin emails.
func NewAdminPolicy(raw string) *AdminPolicy {
	p := &AdminPolicy{emails: map[string]struct{}{}}
	for _, e := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t'
	}) {
		if e = normalizeEmail(e); e != "" {
			p.emails[e] = struct{}{}
		}
	}
	return p
}

func (p *AdminPolicy) IsAdmin(email string) bool {
	if p == nil {
		return false
	}
	_, ok := p.emails[normalizeEmail(email)]
	return ok
}

// Recipients returns the configured admin emails, used for notifications.
func (p *AdminPolicy) Recipients() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.emails))
	for e := range p.emails {
		out = append(out, e)
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
