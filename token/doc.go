// Package token holds the externally issued bearer token deposited by the
// OAuth redirect flow, and decodes the expiration hint embedded in it.
//
// Decoding never verifies the signature. The expiration is a display and
// cache hint only; the backend remains the trust boundary.
package token
