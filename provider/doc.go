// Package provider turns a raw credential into a validated session by
// calling the backend validation endpoint for that identity source.
//
// HostShell validates the host init payload and never touches storage.
// ExternalOAuth validates a bearer token, decoding its exp claim locally,
// and purges the stored token when the backend rejects it.
package provider
