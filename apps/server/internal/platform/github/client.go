// Package github builds authenticated go-github clients for the listing and
// content adapters in apps/server/internal/book/adapters/github.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"
)

const defaultAPIURL = "https://api.github.com"

// RequestTimeout bounds every request made through a client from this package.
const RequestTimeout = 30 * time.Second

// NewTokenClient creates a client authenticated with a personal access token.
// An empty token yields an anonymous client with the public rate limit. Pass
// baseURL="" for api.github.com, or e.g. "http://localhost:9090" for the mock.
func NewTokenClient(token, baseURL string) (*gogithub.Client, error) {
	hc := &http.Client{Timeout: RequestTimeout}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(context.WithValue(context.Background(), oauth2.HTTPClient, hc), ts)
		hc.Timeout = RequestTimeout
	}
	c := gogithub.NewClient(hc)
	if err := applyBaseURL(c, baseURL); err != nil {
		return nil, err
	}
	return c, nil
}

// NewAppClient creates a client authenticated as a GitHub App installation.
// privateKeyPath is the path to the app's PEM private key.
func NewAppClient(appID, installationID int64, privateKeyPath, baseURL string) (*gogithub.Client, error) {
	tr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, appID, installationID, privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("github app auth: %w", err)
	}
	if baseURL != "" {
		tr.BaseURL = strings.TrimRight(baseURL, "/")
	}

	c := gogithub.NewClient(&http.Client{Transport: tr, Timeout: RequestTimeout})
	if err := applyBaseURL(c, baseURL); err != nil {
		return nil, err
	}
	return c, nil
}

func applyBaseURL(c *gogithub.Client, baseURL string) error {
	base := strings.TrimRight(baseURL, "/")
	if base == "" || base == defaultAPIURL {
		return nil
	}
	u, err := url.Parse(base + "/")
	if err != nil {
		return fmt.Errorf("parse GitHub API URL %q: %w", baseURL, err)
	}
	c.BaseURL = u
	return nil
}
