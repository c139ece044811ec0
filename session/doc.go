// Package session defines the normalized, persisted login session and the
// store that reads and writes it.
//
// A Session is one of two variants:
//
//	HostShellSession      credential issued by the trusted host shell, no expiration
//	ExternalOAuthSession  bearer token from the OAuth redirect flow, with expiration
//
// The variants are sealed so "expiration present iff external OAuth" is a
// property of the type. Sessions are replaced wholesale and are either fully
// formed or absent: Store refuses to save an incomplete session and clears
// the slot when it finds a corrupt one.
package session
