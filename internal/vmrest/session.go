package vmrest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/faize-ai/guestdir/internal/config"
	"github.com/faize-ai/guestdir/internal/logging"
	"github.com/faize-ai/guestdir/internal/session"
)

const (
	endpointAPI  = "api"
	endpointREST = "rest"

	apiSessionPath  = "/api/session"
	restSessionPath = "/rest/com/vmware/cis/session"
)

// OpenSession authenticates against conn's vCenter and returns a client
// carrying the session token. Empty hostname, username or password are
// rejected before any network activity.
//
// When store is non-nil a cached token for the same user and host is reused
// if vCenter still accepts it, and a freshly issued token is written back.
func OpenSession(ctx context.Context, conn *config.Connection, store *session.Store) (*Client, error) {
	if err := checkConnection(conn); err != nil {
		return nil, err
	}

	c, err := NewClient(conn)
	if err != nil {
		return nil, err
	}

	if store != nil {
		if cached := store.Lookup(conn.Hostname, conn.Username); cached != nil {
			c.token = cached.Token
			c.endpoint = cached.Endpoint
			ok, err := c.sessionValid(ctx)
			if err != nil {
				return nil, multierr.Append(err, c.Close())
			}
			if ok {
				logging.S().Debugf("reusing cached session for %s@%s", conn.Username, conn.Hostname)
				now := time.Now().UTC()
				cached.LastUsed = &now
				if err := store.Save(cached); err != nil {
					logging.S().Warnf("failed to update session cache: %v", err)
				}
				return c, nil
			}
			c.token = ""
			c.endpoint = endpointAPI
		}
	}

	if err := c.login(ctx); err != nil {
		return nil, multierr.Append(err, c.Close())
	}

	if store != nil {
		sess := &session.Session{
			ID:        session.Key(conn.Hostname, conn.Username),
			Hostname:  conn.Hostname,
			Username:  conn.Username,
			Token:     c.token,
			Endpoint:  c.endpoint,
			CreatedAt: time.Now().UTC(),
		}
		if err := store.Save(sess); err != nil {
			logging.S().Warnf("failed to cache session: %v", err)
		}
	}

	return c, nil
}

// Logout invalidates the client's API session on the server.
func (c *Client) Logout(ctx context.Context) error {
	if c.token == "" {
		return nil
	}

	path := apiSessionPath
	if c.endpoint == endpointREST {
		path = restSessionPath
	}
	resp, err := c.Delete(ctx, path)
	if err != nil {
		return err
	}
	// 401 means the token had already expired
	if resp.Status >= 300 && resp.Status != http.StatusUnauthorized {
		return &RemoteFailure{Status: resp.Status, Body: resp.Text}
	}

	c.token = ""
	return nil
}

func checkConnection(conn *config.Connection) error {
	switch {
	case conn.Hostname == "":
		return &config.ConfigurationError{Field: config.KeyHostname}
	case conn.Username == "":
		return &config.ConfigurationError{Field: config.KeyUsername}
	case conn.Password == "":
		return &config.ConfigurationError{Field: config.KeyPassword}
	}
	return nil
}

// login opens a new session, falling back to the pre-7.0 endpoint when
// /api/session does not exist.
func (c *Client) login(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodPost, apiSessionPath, nil, true)
	if err != nil {
		return err
	}

	if resp.Status == http.StatusNotFound {
		resp, err = c.send(ctx, http.MethodPost, restSessionPath, nil, true)
		if err != nil {
			return err
		}
		if resp.Status != http.StatusOK && resp.Status != http.StatusCreated {
			return &AuthenticationFailure{Status: resp.Status, Message: resp.Text}
		}
		token, _ := Normalize(resp.Body)["value"].(string)
		if token == "" {
			return &AuthenticationFailure{Status: resp.Status, Message: "no session token in response"}
		}
		c.token = token
		c.endpoint = endpointREST
		return nil
	}

	if resp.Status != http.StatusOK && resp.Status != http.StatusCreated {
		return &AuthenticationFailure{Status: resp.Status, Message: resp.Text}
	}

	token, ok := resp.Body.(string)
	if !ok {
		// some builds envelope the token
		token, _ = Normalize(resp.Body)["value"].(string)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return &AuthenticationFailure{Status: resp.Status, Message: "no session token in response"}
	}

	c.token = token
	c.endpoint = endpointAPI
	return nil
}

// sessionValid reports whether the current token is still accepted.
func (c *Client) sessionValid(ctx context.Context) (bool, error) {
	var (
		resp *Response
		err  error
	)
	if c.endpoint == endpointREST {
		resp, err = c.Post(ctx, restSessionPath+"?~action=get", nil)
	} else {
		resp, err = c.Get(ctx, apiSessionPath)
	}
	if err != nil {
		return false, err
	}
	return resp.Status == http.StatusOK, nil
}
