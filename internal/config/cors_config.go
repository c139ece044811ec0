package config

import "strings"

const (
	fakeBackendAddrVar   = "TMA_FAKE_BACKEND_ADDR"
	fakeBackendSecretVar = "TMA_FAKE_BACKEND_SECRET"
	allowedOriginsVar    = "TMA_ALLOWED_ORIGINS"
)

// CorsConfig configures the development fake backend.
type CorsConfig interface {
	GetFakeBackendAddr() string
	GetFakeBackendSecret() string
	GetAllowedOrigins() AllowedOrigins
}

type Cors struct {
	file *FakeBackendFile
}

var _ CorsConfig = Cors{}

type AllowedOrigins []string

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	for _, o := range a {
		if o == origin {
			return true
		}
	}
	return false
}

func (a AllowedOrigins) String() string {
	return strings.Join(a, ", ")
}

func (c Cors) GetFakeBackendAddr() string {
	addr := lookup(fakeBackendAddrVar, c.file.Addr, ":8080")
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	return addr
}

func (c Cors) GetFakeBackendSecret() string {
	return lookup(fakeBackendSecretVar, c.file.Secret, "")
}

func (c Cors) GetAllowedOrigins() AllowedOrigins {
	return lookupList(allowedOriginsVar, c.file.AllowedOrigins)
}
