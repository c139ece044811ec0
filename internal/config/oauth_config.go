package config

const (
	authorizeURLVar    = "TMA_AUTHORIZE_URL"
	issuerVar          = "TMA_ISSUER"
	clientIDVar        = "TMA_CLIENT_ID"
	redirectBaseURLVar = "TMA_REDIRECT_BASE_URL"
	scopesVar          = "TMA_SCOPES"
)

// AuthorizeConfig describes the remote authorize step. Either an authorize
// URL or an issuer for discovery is expected.
type AuthorizeConfig interface {
	GetAuthorizeURL() string
	GetIssuer() string
	GetClientID() string
	GetRedirectBaseURL() string
	GetScopes() []string
}

type OAuth struct {
	file *AuthorizeFile
}

var _ AuthorizeConfig = OAuth{}

func (o OAuth) GetAuthorizeURL() string {
	return lookup(authorizeURLVar, o.file.URL, "")
}

func (o OAuth) GetIssuer() string {
	return lookup(issuerVar, o.file.Issuer, "")
}

func (o OAuth) GetClientID() string {
	return lookup(clientIDVar, o.file.ClientID, "tma-session")
}

func (o OAuth) GetRedirectBaseURL() string {
	return lookup(redirectBaseURLVar, o.file.RedirectBaseURL, "http://localhost:3000")
}

func (o OAuth) GetScopes() []string {
	return lookupList(scopesVar, o.file.Scopes)
}
