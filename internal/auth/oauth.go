package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	apperrors "github.com/yourorg/gigachat-gateway/internal/errors"
)

// DefaultExpiry applies when the token response carries no expiry at all.
const DefaultExpiry = 1800 * time.Second

// epochMillisThreshold separates epoch seconds from epoch milliseconds in
// expires_at values.
const epochMillisThreshold = 1_000_000_000_000

// TokenFromResponse parses a token endpoint body. Expiry is taken from
// expires_in (relative seconds), then expires_at (absolute), then defaults to
// now+DefaultExpiry.
func TokenFromResponse(body []byte, now time.Time) (*oauth2.Token, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: body is not JSON", apperrors.ErrAuthProtocol)
	}
	res := gjson.ParseBytes(body)

	access := res.Get("access_token").String()
	if access == "" {
		return nil, fmt.Errorf("%w: missing access_token", apperrors.ErrAuthProtocol)
	}

	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if tt := res.Get("token_type").String(); tt != "" {
		tok.TokenType = tt
	}

	if secs, ok := positiveSeconds(res.Get("expires_in")); ok {
		tok.ExpiresIn = secs
		tok.Expiry = now.Add(time.Duration(secs) * time.Second)
	} else if at := res.Get("expires_at"); at.Exists() && at.Type != gjson.Null {
		expiry, err := parseExpiresAt(at)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrAuthProtocol, err)
		}
		if !expiry.After(now) {
			return nil, fmt.Errorf("%w: expires_at %s is not in the future", apperrors.ErrAuthProtocol, expiry.Format(time.RFC3339))
		}
		tok.Expiry = expiry
	} else {
		tok.Expiry = now.Add(DefaultExpiry)
	}

	if raw, ok := res.Value().(map[string]any); ok {
		tok = tok.WithExtra(raw)
	}
	return tok, nil
}

// positiveSeconds accepts expires_in as a JSON number or numeric string
// greater than zero. Anything else counts as absent.
func positiveSeconds(v gjson.Result) (int64, bool) {
	var n int64
	switch v.Type {
	case gjson.Number:
		n = v.Int()
	case gjson.String:
		parsed, err := strconv.ParseInt(v.Str, 10, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	return n, n > 0
}

func parseExpiresAt(v gjson.Result) (time.Time, error) {
	if v.Type == gjson.String {
		if _, err := strconv.ParseInt(v.Str, 10, 64); err != nil {
			t, err := time.Parse(time.RFC3339, v.Str)
			if err != nil {
				return time.Time{}, fmt.Errorf("unrecognised expires_at %q", v.Str)
			}
			return t, nil
		}
	}
	n := v.Int()
	if n >= epochMillisThreshold {
		return time.UnixMilli(n), nil
	}
	return time.Unix(n, 0), nil
}
