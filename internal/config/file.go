package config

// FileConfig is the YAML overlay. Durations use time.ParseDuration syntax.
type FileConfig struct {
	App         AppFile         `yaml:"app"`
	Backend     BackendFile     `yaml:"backend"`
	Session     SessionFile     `yaml:"session"`
	Storage     StorageFile     `yaml:"storage"`
	Authorize   AuthorizeFile   `yaml:"authorize"`
	Host        HostFile        `yaml:"host"`
	FakeBackend FakeBackendFile `yaml:"fake_backend"`
}

type AppFile struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
}

type BackendFile struct {
	BaseURL           string `yaml:"base_url"`
	HostValidatePath  string `yaml:"host_validate_path"`
	OAuthValidatePath string `yaml:"oauth_validate_path"`
	HostScheme        string `yaml:"host_scheme"`
	ValidationTimeout string `yaml:"validation_timeout"`
}

type SessionFile struct {
	RefreshMargin  string `yaml:"refresh_margin"`
	CredentialWait string `yaml:"credential_wait"`
	PollInterval   string `yaml:"poll_interval"`
	SessionKey     string `yaml:"session_key"`
	TokenKey       string `yaml:"token_key"`
}

type StorageFile struct {
	Backend       string `yaml:"backend"`
	Dir           string `yaml:"dir"`
	SealKey       string `yaml:"seal_key"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
	TTL           string `yaml:"ttl"`
}

type AuthorizeFile struct {
	URL             string   `yaml:"url"`
	Issuer          string   `yaml:"issuer"`
	ClientID        string   `yaml:"client_id"`
	RedirectBaseURL string   `yaml:"redirect_base_url"`
	Scopes          []string `yaml:"scopes"`
}

type HostFile struct {
	InitDataEnv string `yaml:"init_data_env"`
}

type FakeBackendFile struct {
	Addr           string   `yaml:"addr"`
	Secret         string   `yaml:"secret"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}
