package google

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GetHTTPClientForMailbox returns an HTTP client authenticated for the given
// mailbox identity. Two credential sources are supported, tried in order:
//
//  1. A service-account key file with domain-wide delegation, pointed to by
//     GOOGLE_SERVICE_ACCOUNT_FILE. The mailbox identity becomes the
//     impersonated subject. This is the deployment path for scanning
//     arbitrary mailboxes in a Workspace domain.
//  2. A cached user token under the mailscope cache directory, refreshed via
//     GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET. This is the local development
//     path and only grants access to the authenticating user's own mailbox.
//
// The rest of the codebase treats the returned client as an opaque
// authenticated handle; token refresh happens inside the oauth2 transport.
func GetHTTPClientForMailbox(ctx context.Context, mailbox string) (*http.Client, error) {
	if keyFile := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"); keyFile != "" {
		return impersonatedClient(ctx, keyFile, mailbox)
	}

	ts, err := cachedTokenSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("no credentials for mailbox: %w (set GOOGLE_SERVICE_ACCOUNT_FILE or authorize a user token)", err)
	}
	return oauth2.NewClient(ctx, ts), nil
}

// impersonatedClient builds a client from a service-account key with the
// mailbox as the delegated subject.
func impersonatedClient(ctx context.Context, keyFile, mailbox string) (*http.Client, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, DefaultScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}
	conf.Subject = mailbox

	return conf.Client(ctx), nil
}

// HasToken reports whether a cached user token exists.
func HasToken() bool {
	_, err := os.ReadFile(tokenFile())
	return err == nil
}

// SaveToken exchanges an authorization code for tokens and caches them.
func SaveToken(ctx context.Context, authCode string) error {
	conf, err := userOAuthConfig()
	if err != nil {
		return err
	}

	t, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	if err := os.MkdirAll(cacheDir(), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tokenData := t.AccessToken + " " + t.RefreshToken
	if err := os.WriteFile(tokenFile(), []byte(tokenData), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// AuthURL returns the OAuth URL for user authorization.
func AuthURL() (string, error) {
	conf, err := userOAuthConfig()
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL("state", oauth2.AccessTypeOffline), nil
}

func userOAuthConfig() (*oauth2.Config, error) {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set for user authorization")
	}
	const oob = "urn:ietf:wg:oauth:2.0:oob"
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  oob,
		Scopes:       DefaultScopes,
	}, nil
}

func cachedTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	conf, err := userOAuthConfig()
	if err != nil {
		return nil, err
	}

	slurp, err := os.ReadFile(tokenFile())
	if err != nil {
		return nil, fmt.Errorf("no cached Google OAuth token found")
	}

	f := strings.Fields(strings.TrimSpace(string(slurp)))
	if len(f) != 2 {
		return nil, fmt.Errorf("invalid token format in %s", tokenFile())
	}

	// Expiry in the past forces a refresh on first use, validating the token.
	ts := conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  f[0],
		TokenType:    "Bearer",
		RefreshToken: f[1],
		Expiry:       time.Unix(1, 0),
	})

	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("cached token is invalid: %w", err)
	}
	return ts, nil
}

func tokenFile() string {
	return filepath.Join(cacheDir(), "google.token")
}

func cacheDir() string {
	return filepath.Join(userCacheDir(), "mailscope")
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	// Windows fallback
	return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
}
