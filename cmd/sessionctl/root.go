package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/megayours/tma-session/auth"
	"github.com/megayours/tma-session/authorize"
	"github.com/megayours/tma-session/host"
	"github.com/megayours/tma-session/internal/config"
	"github.com/megayours/tma-session/provider"
	"github.com/megayours/tma-session/session"
	"github.com/megayours/tma-session/storage"
	"github.com/megayours/tma-session/storage/backends"
	"github.com/megayours/tma-session/token"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var errAuthRequired = errors.New("not authenticated")

// app holds what every subcommand shares. It is built lazily so that
// --help works without a usable config.
type app struct {
	configPath string
	cfg        config.Config
	logger     zerolog.Logger
	out        io.Writer

	slot     storage.Slot
	sessions *session.Store
	tokens   *token.Store
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}

	root := &cobra.Command{
		Use:   "sessionctl",
		Short: "Resolve and inspect the persisted tma session",
		Long: `sessionctl drives the session lifecycle manager from the command line:
it resolves a session from the host init payload or the stored bearer token,
prints or clears the stored session, builds the authorize URL and accepts
its callback, and can serve a fake validation backend for local work.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			return a.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		newResolveCmd(a),
		newStatusCmd(a),
		newLogoutCmd(a),
		newAuthorizeURLCmd(a),
		newCallbackCmd(a),
		newFakeBackendCmd(a),
	)
	return root
}

func (a *app) loadConfig() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	level, err := zerolog.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Str("app", cfg.GetAppName()).Logger()
	return nil
}

// openStores opens the configured slot and the two stores over it.
func (a *app) openStores() error {
	if a.slot != nil {
		return nil
	}

	slot, err := backends.Open(backends.Options{
		Backend:       a.cfg.GetStorageBackend(),
		Dir:           a.cfg.GetStorageDir(),
		SealKey:       a.cfg.GetSealKey(),
		RedisAddr:     a.cfg.GetRedisAddr(),
		RedisPassword: a.cfg.GetRedisPassword(),
		RedisDB:       a.cfg.GetRedisDB(),
		RedisPrefix:   a.cfg.GetRedisPrefix(),
		TTL:           a.cfg.GetStorageTTL(),
		Logger:        a.logger,
	})
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}

	sessions, err := session.NewStore(slot, session.WithKey(a.cfg.GetSessionKey()), session.WithLogger(a.logger))
	if err != nil {
		_ = slot.Close()
		return err
	}
	tokens, err := token.NewStore(slot, a.cfg.GetTokenKey())
	if err != nil {
		_ = slot.Close()
		return err
	}

	a.slot, a.sessions, a.tokens = slot, sessions, tokens
	return nil
}

func (a *app) newResolver(rec auth.Recorder) (*auth.Resolver, error) {
	if err := a.openStores(); err != nil {
		return nil, err
	}

	hostShell, err := provider.NewHostShell(a.cfg.GetBaseURL(),
		provider.WithPath(a.cfg.GetHostValidatePath()),
		provider.WithHostScheme(a.cfg.GetHostScheme()),
		provider.WithTimeout(a.cfg.GetValidationTimeout()),
		provider.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	oauth, err := provider.NewExternalOAuth(a.cfg.GetBaseURL(), a.tokens,
		provider.WithPath(a.cfg.GetOAuthValidatePath()),
		provider.WithTimeout(a.cfg.GetValidationTimeout()),
		provider.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}

	return auth.NewResolver(auth.Deps{
		Sessions:      a.sessions,
		Tokens:        a.tokens,
		Probe:         host.NewAdapter(host.EnvBridge{Name: a.cfg.GetInitDataEnv()}),
		HostShell:     hostShell,
		ExternalOAuth: oauth,
	},
		auth.WithLogger(a.logger),
		auth.WithRecorder(rec),
		auth.WithRefreshMargin(a.cfg.GetRefreshMargin()),
		auth.WithCredentialWait(a.cfg.GetCredentialWait()),
		auth.WithPollInterval(a.cfg.GetPollInterval()),
		auth.WithValidationTimeout(a.cfg.GetValidationTimeout()),
	)
}

// newBuilder prefers a static authorize URL and falls back to discovery.
func (a *app) newBuilder(ctx context.Context) (*authorize.Builder, error) {
	if err := a.openStores(); err != nil {
		return nil, err
	}

	opts := []authorize.Option{
		authorize.WithLogger(a.logger),
		authorize.WithSessionStore(a.sessions),
	}
	if scopes := a.cfg.GetScopes(); len(scopes) > 0 {
		opts = append(opts, authorize.WithScopes(scopes...))
	}

	switch {
	case a.cfg.GetAuthorizeURL() != "":
		return authorize.NewBuilder(a.cfg.GetAuthorizeURL(), a.cfg.GetClientID(), a.cfg.GetRedirectBaseURL(), a.tokens, opts...)
	case a.cfg.GetIssuer() != "":
		return authorize.Discover(ctx, a.cfg.GetIssuer(), a.cfg.GetClientID(), a.cfg.GetRedirectBaseURL(), a.tokens, opts...)
	default:
		return nil, errors.New("either TMA_AUTHORIZE_URL or TMA_ISSUER must be set")
	}
}

func (a *app) close() {
	if a.slot == nil {
		return
	}
	if err := a.slot.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("closing storage")
	}
	a.slot = nil
}
