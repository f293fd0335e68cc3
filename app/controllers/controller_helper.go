package controllers

import (
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const defaultPerPage = 20

var validate = validator.New()

// jsonError writes the {"error","message"} body every API handler uses.
func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// pageParams reads a 1-based ?page= query and returns offset, limit and page.
func pageParams(c *fiber.Ctx) (int, int, int) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	return (page - 1) * defaultPerPage, defaultPerPage, page
}

func totalPages(total int64, perPage int) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

func parseUintParam(c *fiber.Ctx, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

func firstHeaderValue(c *fiber.Ctx, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(c.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// ClientIP returns the caller's address as seen before Cloudflare and any
// reverse proxy: CF-Connecting-IP, then the first valid X-Forwarded-For
// entry, then X-Real-IP, then the socket address. IPv4-mapped IPv6
// addresses are reported in dotted form.
func ClientIP(c *fiber.Ctx) string {
	candidates := []string{c.Get("CF-Connecting-IP")}
	candidates = append(candidates, strings.Split(c.Get(fiber.HeaderXForwardedFor), ",")...)
	candidates = append(candidates, c.Get("X-Real-IP"), c.IP())

	for _, raw := range candidates {
		if addr, err := netip.ParseAddr(strings.TrimSpace(raw)); err == nil {
			return addr.Unmap().String()
		}
	}
	return c.IP()
}
