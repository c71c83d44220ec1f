package auth

import (
	"encoding/base64"
	"net/http"
	"net/url"
)

// Credentials is the static client identity used for the client-credentials
// exchange. It is immutable after load.
type Credentials struct {
	ClientID     string
	ClientSecret string
	// AuthKey switches the exchange to HTTP Basic authentication.
	AuthKey string
	Scope   string

	AuthURL string
	ChatURL string
}

// UsesBasicAuth reports whether the exchange sends a Basic Authorization
// header instead of client_id/client_secret form fields.
func (c Credentials) UsesBasicAuth() bool {
	return c.AuthKey != ""
}

func (c Credentials) form() url.Values {
	v := url.Values{}
	v.Set("scope", c.Scope)
	v.Set("grant_type", "client_credentials")
	if !c.UsesBasicAuth() {
		v.Set("client_id", c.ClientID)
		v.Set("client_secret", c.ClientSecret)
	}
	return v
}

// authorize sets the Basic header when an authorization key is configured.
// The header is built from the client id and secret; the key is sent as is
// only when no id/secret pair is available, since it is already the encoded
// pair issued by the provider.
func (c Credentials) authorize(r *http.Request) {
	if !c.UsesBasicAuth() {
		return
	}
	cred := c.AuthKey
	if c.ClientID != "" || c.ClientSecret != "" {
		cred = base64.StdEncoding.EncodeToString([]byte(c.ClientID + ":" + c.ClientSecret))
	}
	r.Header.Set("Authorization", "Basic "+cred)
}
