// Package google holds the Google OAuth2 plumbing shared by the connection
// manager and the API clients: OAuth client configuration, per-toolkit scopes,
// authenticated HTTP clients and the account email lookup.
package google
