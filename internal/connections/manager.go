package connections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teemow/sheetmailer/internal/google"
	"github.com/teemow/sheetmailer/internal/instrumentation"
	"github.com/teemow/sheetmailer/internal/logging"
)

const (
	callbackPath      = "/callback"
	waitPollInterval  = 500 * time.Millisecond
	defaultListenHost = "127.0.0.1"
)

// EmailLookup resolves the account email behind an authorized client.
type EmailLookup func(ctx context.Context, client *http.Client) (string, error)

// Manager creates, completes and serves OAuth connections.
type Manager struct {
	store       *store
	creds       google.ClientCredentials
	authConfigs map[string]AuthConfig
	endpoint    oauth2.Endpoint
	listenHost  string
	lookupEmail EmailLookup
	httpClient  *http.Client
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	now         func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingAuth
}

// pendingAuth is an authorization waiting for its callback.
type pendingAuth struct {
	conf     *oauth2.Config
	verifier string
	server   *http.Server
	done     chan struct{}
	once     sync.Once
}

func (p *pendingAuth) finish() {
	p.once.Do(func() { close(p.done) })
}

// Option configures a Manager.
type Option func(*Manager)

// WithDir stores records and tokens in dir instead of the user cache dir.
func WithDir(dir string) Option {
	return func(m *Manager) { m.store = newStore(dir) }
}

// WithAuthConfigs replaces the default auth configs.
func WithAuthConfigs(configs ...AuthConfig) Option {
	return func(m *Manager) {
		m.authConfigs = make(map[string]AuthConfig, len(configs))
		for _, c := range configs {
			m.authConfigs[c.ID] = c
		}
	}
}

// WithEndpoint overrides the Google OAuth endpoint.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(m *Manager) { m.endpoint = endpoint }
}

// WithEmailLookup overrides how the account email is resolved.
func WithEmailLookup(fn EmailLookup) Option {
	return func(m *Manager) { m.lookupEmail = fn }
}

// WithHTTPClient sets the client used for token exchange and refresh.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) { m.httpClient = client }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics records authorization and refresh metrics.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager returns a Manager using creds as the OAuth client.
func NewManager(creds google.ClientCredentials, opts ...Option) *Manager {
	m := &Manager{
		store:      newStore(google.UserCacheDir()),
		creds:      creds,
		endpoint:   google.OAuthConfig(creds, "", nil).Endpoint,
		listenHost: defaultListenHost,
		lookupEmail: func(ctx context.Context, client *http.Client) (string, error) {
			return google.FetchAccountEmail(ctx, client)
		},
		logger:  slog.Default(),
		now:     time.Now,
		pending: make(map[string]*pendingAuth),
	}
	WithAuthConfigs(DefaultAuthConfigs()...)(m)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AuthConfig returns the auth config registered under id.
func (m *Manager) AuthConfig(id string) (AuthConfig, error) {
	c, ok := m.authConfigs[id]
	if !ok {
		return AuthConfig{}, fmt.Errorf("%w: unknown auth config %q", ErrNotFound, id)
	}
	return c, nil
}

// List returns the connections of userID that match filter.
func (m *Manager) List(ctx context.Context, userID string, filter Filter) ([]Connection, error) {
	all, err := m.store.list(userID, Filter{AuthConfigID: filter.AuthConfigID, Toolkit: filter.Toolkit})
	if err != nil {
		return nil, err
	}
	out := make([]Connection, 0, len(all))
	for _, c := range all {
		c = m.withLiveStatus(c)
		if len(filter.Statuses) == 0 || filter.matches(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Get returns the connection with its current status.
func (m *Manager) Get(ctx context.Context, id string) (Connection, error) {
	c, err := m.store.get(id)
	if err != nil {
		return Connection{}, err
	}
	return m.withLiveStatus(c), nil
}

// withLiveStatus reports ACTIVE connections with an unusable token as EXPIRED.
func (m *Manager) withLiveStatus(c Connection) Connection {
	if c.Status != StatusActive {
		return c
	}
	tok, err := m.store.loadToken(c.ID)
	if err != nil || google.TokenExpired(tok, m.now()) {
		c.Status = StatusExpired
	}
	return c
}

// Initiate starts a new authorization for authConfigID and returns the URL
// the user must open. The callback listener stays up until the flow
// completes, Wait gives up or the Manager is closed.
func (m *Manager) Initiate(ctx context.Context, userID, authConfigID string, opts InitiateOptions) (*Request, error) {
	if err := ValidateID(userID); err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}
	authConfig, err := m.AuthConfig(authConfigID)
	if err != nil {
		return nil, err
	}

	if !opts.AllowMultiple {
		active, err := m.List(ctx, userID, Filter{AuthConfigID: authConfigID, Statuses: []Status{StatusActive}})
		if err != nil {
			return nil, err
		}
		if len(active) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyConnected, active[0].ID)
		}
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(m.listenHost, "0"))
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}

	id := "conn_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	redirect := fmt.Sprintf("http://%s%s", listener.Addr().String(), callbackPath)

	conf := google.OAuthConfig(m.creds, redirect, authConfig.Scopes)
	conf.Endpoint = m.endpoint

	p := &pendingAuth{
		conf:     conf,
		verifier: oauth2.GenerateVerifier(),
		done:     make(chan struct{}),
	}

	now := m.now()
	record := Connection{
		ID:           id,
		UserID:       userID,
		AuthConfigID: authConfig.ID,
		Toolkit:      authConfig.Toolkit,
		Status:       StatusInitiated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.store.put(record); err != nil {
		_ = listener.Close()
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, m.callbackHandler(id, p))
	p.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	m.mu.Lock()
	m.pending[id] = p
	m.mu.Unlock()

	go func() {
		if err := p.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Warn("callback listener stopped", logging.Connection(id), logging.Err(err))
		}
	}()

	authURL := conf.AuthCodeURL(id,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(p.verifier),
	)

	m.logger.Info("connection initiated",
		logging.Connection(id),
		slog.String("auth_config", authConfig.ID),
		slog.String("toolkit", authConfig.Toolkit))

	return &Request{ID: id, RedirectURL: authURL}, nil
}

func (m *Manager) callbackHandler(id string, p *pendingAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("state") != id {
			http.Error(w, "Invalid or expired state", http.StatusBadRequest)
			return
		}

		if errCode := query.Get("error"); errCode != "" {
			m.fail(r.Context(), id, fmt.Errorf("authorization denied: %s", errCode))
			http.Error(w, "Authorization failed: "+errCode, http.StatusBadRequest)
			p.finish()
			return
		}

		code := query.Get("code")
		if code == "" {
			http.Error(w, "Missing authorization code", http.StatusBadRequest)
			return
		}

		if err := m.complete(r.Context(), id, p, code); err != nil {
			m.fail(r.Context(), id, err)
			http.Error(w, "Authorization failed", http.StatusInternalServerError)
			p.finish()
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<html><body>Authorization complete. You can close this window.</body></html>")
		p.finish()
	}
}

// complete exchanges the code, stores the token and activates the connection.
func (m *Manager) complete(ctx context.Context, id string, p *pendingAuth, code string) error {
	ctx = m.clientContext(ctx)

	tok, err := p.conf.Exchange(ctx, code, oauth2.VerifierOption(p.verifier))
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := m.store.saveToken(id, tok); err != nil {
		return err
	}

	record, err := m.store.get(id)
	if err != nil {
		return err
	}

	email, err := m.lookupEmail(ctx, google.NewHTTPClient(ctx, p.conf.TokenSource(ctx, tok)))
	if err != nil {
		m.logger.Warn("failed to resolve account email", logging.Connection(id), logging.Err(err))
	}

	record.Status = StatusActive
	record.AccountEmail = email
	record.Error = ""
	record.UpdatedAt = m.now()
	if err := m.store.put(record); err != nil {
		return err
	}

	m.metrics.RecordConnectionAuth(ctx, record.Toolkit, instrumentation.AuthResultSuccess)
	m.logger.Info("connection active",
		logging.Connection(id),
		logging.UserHash(email),
		logging.Domain(email))
	return nil
}

func (m *Manager) fail(ctx context.Context, id string, cause error) {
	record, err := m.store.get(id)
	if err != nil {
		return
	}
	record.Status = StatusFailed
	record.Error = cause.Error()
	record.UpdatedAt = m.now()
	if err := m.store.put(record); err != nil {
		m.logger.Warn("failed to persist connection failure", logging.Connection(id), logging.Err(err))
	}
	m.metrics.RecordConnectionAuth(ctx, record.Toolkit, instrumentation.AuthResultFailure)
	m.logger.Warn("connection failed", logging.Connection(id), logging.Err(cause))
}

// Wait blocks until the connection leaves INITIATED or timeout elapses.
// It returns the ACTIVE connection, an error naming the failure, or
// ErrAuthTimeout.
func (m *Manager) Wait(ctx context.Context, id string, timeout time.Duration) (Connection, error) {
	m.mu.Lock()
	p := m.pending[id]
	m.mu.Unlock()

	var done <-chan struct{}
	if p != nil {
		done = p.done
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		c, err := m.Get(ctx, id)
		if err != nil {
			return Connection{}, err
		}
		switch c.Status {
		case StatusActive:
			m.release(id)
			return c, nil
		case StatusFailed:
			m.release(id)
			return c, fmt.Errorf("connection %s failed: %s", id, c.Error)
		case StatusExpired:
			m.release(id)
			return c, fmt.Errorf("connection %s expired", id)
		}

		select {
		case <-ctx.Done():
			return c, ctx.Err()
		case <-timer.C:
			m.release(id)
			if c.Toolkit != "" {
				m.metrics.RecordConnectionAuth(ctx, c.Toolkit, instrumentation.AuthResultTimeout)
			}
			return c, fmt.Errorf("%w after %s", ErrAuthTimeout, timeout)
		case <-done:
			done = nil
		case <-ticker.C:
		}
	}
}

// release stops the callback listener of a pending authorization.
func (m *Manager) release(id string) {
	m.mu.Lock()
	p := m.pending[id]
	delete(m.pending, id)
	m.mu.Unlock()

	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = p.server.Shutdown(ctx)
}

// Close stops all pending callback listeners.
func (m *Manager) Close() error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.release(id)
	}
	return nil
}

// TokenSource returns a refreshing token source for an ACTIVE connection.
// Refreshed tokens are written back to the token file.
func (m *Manager) TokenSource(ctx context.Context, id string) (oauth2.TokenSource, error) {
	c, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotActive, id, c.Status)
	}
	authConfig, err := m.AuthConfig(c.AuthConfigID)
	if err != nil {
		return nil, err
	}
	tok, err := m.store.loadToken(id)
	if err != nil {
		return nil, err
	}

	conf := google.OAuthConfig(m.creds, "", authConfig.Scopes)
	conf.Endpoint = m.endpoint

	return &persistingTokenSource{
		id:      id,
		base:    conf.TokenSource(m.clientContext(context.WithoutCancel(ctx)), tok),
		last:    tok.AccessToken,
		store:   m.store,
		logger:  m.logger,
		metrics: m.metrics,
	}, nil
}

func (m *Manager) clientContext(ctx context.Context) context.Context {
	if m.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}
	return ctx
}

// persistingTokenSource saves tokens whenever the underlying source refreshes.
type persistingTokenSource struct {
	mu      sync.Mutex
	id      string
	base    oauth2.TokenSource
	last    string
	store   *store
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.base.Token()
	if err != nil {
		s.metrics.RecordOAuthTokenRefresh(context.Background(), instrumentation.StatusError)
		return nil, fmt.Errorf("failed to refresh token for %s: %w", s.id, err)
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		s.metrics.RecordOAuthTokenRefresh(context.Background(), instrumentation.StatusSuccess)
		s.logger.Debug("token refreshed",
			logging.Connection(s.id),
			slog.String("access_token", logging.SanitizeToken(tok.AccessToken)),
			slog.Time("expiry", tok.Expiry))
		if err := s.store.saveToken(s.id, tok); err != nil {
			s.logger.Warn("failed to save refreshed token", logging.Connection(s.id), logging.Err(err))
		}
	}
	return tok, nil
}
