package fakebackend

// Route path constants
const (
	// Validation routes called by the provider validators
	RouteHostValidate  = "/auth/validate"
	RouteOAuthValidate = "/auth/oauth/validate"

	// Development-only authorize route that mints a bearer token and
	// redirects back with it
	RouteOAuthAuthorize = "/oauth/authorize"

	RouteHealth = "/healthz"
)
