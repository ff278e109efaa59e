package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/crimson-sun/watchtower/internal/session"
	"github.com/crimson-sun/watchtower/internal/transport"
)

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user,omitempty"`
}

// Authenticate exchanges credentials for an access token. It implements
// session.Authenticator. A rejection never tears down the current session.
func (c *Client) Authenticate(ctx context.Context, handle, secret string) (session.Grant, error) {
	resp, err := call[loginResponse](ctx, c, transport.Request{
		Name:       "auth.login",
		Method:     http.MethodPost,
		Path:       "/auth/login",
		Form:       url.Values{"username": {handle}, "password": {secret}},
		NoTeardown: true,
	})
	if err != nil {
		return session.Grant{}, err
	}
	g := session.Grant{AccessToken: resp.AccessToken, TokenType: resp.TokenType}
	if resp.User != nil {
		g.User = &session.GrantUser{Username: resp.User.Username, Role: resp.User.Role}
	}
	return g, nil
}
