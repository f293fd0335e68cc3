package hcaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thrivewithai/thrivewithai/internal/pkg/env"
)

// VerifyURL is the siteverify endpoint; tests point it at a local server.
var VerifyURL = "https://api.hcaptcha.com/siteverify"

var (
	ErrMissingToken = errors.New("captcha token missing")
	ErrRejected     = errors.New("captcha rejected")
)

var client = &http.Client{Timeout: 10 * time.Second}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

func secret() string {
	return strings.TrimSpace(env.GetEnv("HCAPTCHA_SECRET", ""))
}

// Enabled reports whether a secret is configured. Without one, registration skips the captcha.
func Enabled() bool {
	return secret() != ""
}

// Verify checks a client token with hCaptcha. remoteIP is optional.
func Verify(ctx context.Context, token, remoteIP string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingToken
	}
	s := secret()
	if s == "" {
		return errors.New("HCAPTCHA_SECRET is not set")
	}

	form := url.Values{"secret": {s}, "response": {token}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("hcaptcha siteverify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hcaptcha siteverify: status %d", resp.StatusCode)
	}

	var out siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return fmt.Errorf("hcaptcha siteverify: decode: %w", err)
	}
	if !out.Success {
		if len(out.ErrorCodes) > 0 {
			return fmt.Errorf("%w: %s", ErrRejected, strings.Join(out.ErrorCodes, ", "))
		}
		return ErrRejected
	}
	return nil
}
