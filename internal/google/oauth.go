package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/teemow/sheetmailer/internal/instrumentation"
)

// ErrMissingClientCredentials is returned when no OAuth client is configured.
var ErrMissingClientCredentials = errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")

// ClientCredentials identify the OAuth client used for every connection.
type ClientCredentials struct {
	ID     string
	Secret string
}

// CredentialsFromEnv reads GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.
func CredentialsFromEnv() (ClientCredentials, error) {
	creds := ClientCredentials{
		ID:     os.Getenv("GOOGLE_CLIENT_ID"),
		Secret: os.Getenv("GOOGLE_CLIENT_SECRET"),
	}
	if creds.ID == "" || creds.Secret == "" {
		return ClientCredentials{}, ErrMissingClientCredentials
	}
	return creds, nil
}

// OAuthConfig returns the OAuth2 configuration for one authorization.
func OAuthConfig(creds ClientCredentials, redirectURL string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ID,
		ClientSecret: creds.Secret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
	}
}

// NewHTTPClient returns a client that authenticates with ts.
// It uses HTTP/1.1 to avoid HTTP/2 stream errors seen with Google APIs.
func NewHTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}
	return client
}

// FetchAccountEmail returns the email of the account behind client.
func FetchAccountEmail(ctx context.Context, client *http.Client, opts ...option.ClientOption) (string, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceUserInfo, instrumentation.OperationGet)
	defer span.End()

	svc, err := oauth2api.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)...)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return "", fmt.Errorf("failed to create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return "", fmt.Errorf("failed to fetch user info: %w", err)
	}
	return info.Email, nil
}

// TokenSourceProvider hands out token sources for connection IDs.
type TokenSourceProvider interface {
	TokenSource(ctx context.Context, connectionID string) (oauth2.TokenSource, error)
}

// HTTPClientFor builds an authenticated client for a connection.
func HTTPClientFor(ctx context.Context, provider TokenSourceProvider, connectionID string) (*http.Client, error) {
	ts, err := provider.TokenSource(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	return NewHTTPClient(ctx, ts), nil
}

// TokenExpired reports whether tok is unusable without a refresh token.
func TokenExpired(tok *oauth2.Token, now time.Time) bool {
	if tok == nil {
		return true
	}
	if tok.RefreshToken != "" {
		return false
	}
	return !tok.Expiry.IsZero() && now.After(tok.Expiry)
}

// UserCacheDir returns the directory holding sheetmailer's credentials.
// SHEETMAILER_CACHE_DIR overrides the platform default.
func UserCacheDir() string {
	if dir := os.Getenv("SHEETMAILER_CACHE_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(userCacheDir(), "sheetmailer")
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
		return os.TempDir()
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
