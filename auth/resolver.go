package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/megayours/tma-session/host"
	"github.com/megayours/tma-session/provider"
	"github.com/megayours/tma-session/session"
	"github.com/megayours/tma-session/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultRefreshMargin is how long before expiry a cached external OAuth
	// session stops being trusted without revalidation.
	DefaultRefreshMargin = time.Hour

	// DefaultCredentialWait bounds how long a pass waits for the host shell
	// to publish its init payload.
	DefaultCredentialWait = 30 * time.Second

	DefaultValidationTimeout = provider.DefaultTimeout

	pendingCredential = "pending"
	tracerName        = "github.com/megayours/tma-session/auth"
)

// Deps holds the collaborators a Resolver needs. All fields are required.
type Deps struct {
	Sessions      *session.Store
	Tokens        *token.Store
	Probe         host.EnvironmentProbe
	HostShell     provider.Validator
	ExternalOAuth provider.Validator
}

type listener struct {
	id uint64
	fn func(Status)
}

// Resolver reconciles the cached session, the host shell credential and
// the stored bearer token into one authoritative session.
type Resolver struct {
	sessions      *session.Store
	tokens        *token.Store
	probe         host.EnvironmentProbe
	hostShell     provider.Validator
	externalOAuth provider.Validator

	logger            zerolog.Logger
	recorder          Recorder
	tracer            trace.Tracer
	nowTime           func() time.Time
	refreshMargin     time.Duration
	credentialWait    time.Duration
	pollInterval      time.Duration
	validationTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	passLock  sync.Mutex // one pass runs at a time
	storeLock sync.Mutex // orders commits against logout

	mu           sync.Mutex
	status       Status
	passes       map[string]*Pass
	listeners    []listener
	nextListener uint64
	closed       bool
}

// ResolverOption defines a function type to modify the Resolver instance.
type ResolverOption func(*Resolver)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithRecorder sets the sink for pass, cache and validation events.
func WithRecorder(rec Recorder) ResolverOption {
	return func(r *Resolver) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

func WithRefreshMargin(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d >= 0 {
			r.refreshMargin = d
		}
	}
}

func WithCredentialWait(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.credentialWait = d
		}
	}
}

func WithPollInterval(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

func WithValidationTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.validationTimeout = d
		}
	}
}

// NewResolver initializes a Resolver in the Idle state. Validators are
// wrapped with provider.SingleFlight unless they already are.
func NewResolver(deps Deps, options ...ResolverOption) (*Resolver, error) {
	if deps.Sessions == nil {
		return nil, fmt.Errorf("[NewResolver] %w: Sessions store is required", MissingDependencyErr)
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("[NewResolver] %w: Tokens store is required", MissingDependencyErr)
	}
	if deps.Probe == nil {
		return nil, fmt.Errorf("[NewResolver] %w: Probe is required", MissingDependencyErr)
	}
	if deps.HostShell == nil {
		return nil, fmt.Errorf("[NewResolver] %w: HostShell validator is required", MissingDependencyErr)
	}
	if deps.ExternalOAuth == nil {
		return nil, fmt.Errorf("[NewResolver] %w: ExternalOAuth validator is required", MissingDependencyErr)
	}

	r := &Resolver{
		sessions:          deps.Sessions,
		tokens:            deps.Tokens,
		probe:             deps.Probe,
		hostShell:         singleFlight(deps.HostShell),
		externalOAuth:     singleFlight(deps.ExternalOAuth),
		logger:            log.Logger,
		recorder:          nopRecorder{},
		tracer:            otel.Tracer(tracerName),
		nowTime:           time.Now,
		refreshMargin:     DefaultRefreshMargin,
		credentialWait:    DefaultCredentialWait,
		pollInterval:      host.DefaultPollInterval,
		validationTimeout: DefaultValidationTimeout,
		status:            newStatus(StateIdle, false, false, nil, nil),
		passes:            make(map[string]*Pass),
	}

	for _, opt := range options {
		opt(r)
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r, nil
}

func singleFlight(v provider.Validator) provider.Validator {
	if sf, ok := v.(*provider.SingleFlight); ok {
		return sf
	}
	return provider.NewSingleFlight(v)
}

// Status returns the last published status.
func (r *Resolver) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// OnChange registers fn to be called after every published status change.
// Calls may come from different goroutines. The returned func unsubscribes.
func (r *Resolver) OnChange(fn func(Status)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextListener
	r.nextListener++
	r.listeners = append(r.listeners, listener{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, l := range r.listeners {
			if l.id == id {
				r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

// Trigger starts a pass, or joins the in-flight pass for the same
// credential. The pass runs under the resolver's lifetime; ctx is only used
// to read the current credential.
func (r *Resolver) Trigger(ctx context.Context) *Pass {
	key := r.triggerKey(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.triggerLocked(key)
}

// Resolve triggers a pass and waits for it.
func (r *Resolver) Resolve(ctx context.Context) (Status, error) {
	return r.Trigger(ctx).Wait(ctx)
}

// Restart cancels every in-flight pass and starts a new one.
func (r *Resolver) Restart(ctx context.Context) *Pass {
	key := r.triggerKey(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelPassesLocked()
	return r.triggerLocked(key)
}

// Logout cancels in-flight passes, clears the session and the bearer token
// and publishes Unauthenticated. Calling it again has the same effect.
func (r *Resolver) Logout(ctx context.Context) error {
	r.mu.Lock()
	r.cancelPassesLocked()
	r.mu.Unlock()

	r.storeLock.Lock()
	err := errors.Join(r.sessions.Clear(ctx), r.tokens.Clear(ctx))
	r.storeLock.Unlock()

	r.mu.Lock()
	st := newStatus(StateUnauthenticated, r.status.IsHostEnvironment, true, nil, nil)
	r.status = st
	listeners := r.listenersLocked()
	r.mu.Unlock()

	notify(listeners, st)
	r.recorder.Logout()

	if err != nil {
		r.logger.Warn().Err(err).Msg("logout left storage behind")
		return fmt.Errorf("logout: %w", err)
	}
	r.logger.Info().Msg("logged out")
	return nil
}

// Close cancels every pass. Later triggers return a finished pass with
// ResolverClosedErr. The stores are not closed.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.cancelPassesLocked()
	r.cancel()
	r.listeners = nil
	return nil
}

// triggerKey derives the re-entrancy key from the current credential.
func (r *Resolver) triggerKey(ctx context.Context) string {
	if cred := r.probe.ExtractCredential(ctx); cred != nil {
		raw := cred.Raw
		if raw == "" {
			raw = pendingCredential
		}
		return provider.CredentialKey(session.ProviderHostShell, raw)
	}

	tok, err := r.tokens.Load(ctx)
	if err != nil || tok == "" {
		tok = pendingCredential
	}
	return provider.CredentialKey(session.ProviderExternalOAuth, tok)
}

func (r *Resolver) triggerLocked(key string) *Pass {
	if r.closed {
		return finishedPass(r.status, ResolverClosedErr)
	}
	if p, ok := r.passes[key]; ok && !p.cancelled() {
		return p
	}

	p := newPass(r.ctx, key)
	r.passes[key] = p
	go r.run(p)
	return p
}

func (r *Resolver) cancelPassesLocked() {
	for key, p := range r.passes {
		p.cancel()
		delete(r.passes, key)
	}
}

func (r *Resolver) listenersLocked() []func(Status) {
	fns := make([]func(Status), 0, len(r.listeners))
	for _, l := range r.listeners {
		fns = append(fns, l.fn)
	}
	return fns
}

func notify(listeners []func(Status), st Status) {
	for _, fn := range listeners {
		fn(st)
	}
}

// publish stores st unless p was cancelled. The check and the write happen
// under the same lock Logout and Close cancel passes with.
func (r *Resolver) publish(p *Pass, st Status) bool {
	r.mu.Lock()
	if p.cancelled() {
		r.mu.Unlock()
		return false
	}
	r.status = st
	listeners := r.listenersLocked()
	r.mu.Unlock()

	notify(listeners, st)
	return true
}

func (r *Resolver) run(p *Pass) {
	r.passLock.Lock()
	defer r.passLock.Unlock()

	logger := r.logger.With().Str("pass_id", p.ID.String()).Logger()

	if p.cancelled() {
		r.finishCancelled(p, logger)
		return
	}

	isHost := r.probe.IsHostEnvironment(p.ctx)
	prev := r.Status()
	if !r.publish(p, newStatus(StateResolving, isHost, prev.HasAttemptedAuth, nil, nil)) {
		r.finishCancelled(p, logger)
		return
	}
	p.prev = &prev

	st := r.resolve(p.ctx, logger, isHost)
	if p.cancelled() || !r.publish(p, st) {
		r.finishCancelled(p, logger)
		return
	}

	outcome := OutcomeUnauthenticated
	if st.IsAuthenticated {
		outcome = OutcomeAuthenticated
	}
	r.recorder.PassCompleted(outcome)
	logger.Debug().Str("state", st.State.String()).Msg("pass finished")
	r.finishPass(p, st, nil)
}

// finishCancelled ends a cancelled pass. A pass stopped through Pass.Cancel
// is still registered; if its Resolving is the current status and no other
// pass is queued, the status is settled so it never stays Resolving.
// Passes cancelled by Logout, Restart or Close were already unregistered
// and leave the status to them.
func (r *Resolver) finishCancelled(p *Pass, logger zerolog.Logger) {
	r.recorder.PassCompleted(OutcomeCancelled)
	logger.Debug().Msg("pass cancelled")

	var listeners []func(Status)
	r.mu.Lock()
	if p.prev != nil && r.passes[p.key] == p && len(r.passes) == 1 && r.status.State == StateResolving {
		r.status = settledStatus(*p.prev)
		listeners = r.listenersLocked()
	}
	st := r.status
	r.mu.Unlock()

	notify(listeners, st)
	r.finishPass(p, st, PassCancelledErr)
}

// settledStatus is prev if it ended a pass, otherwise Unauthenticated with
// the cancellation as its error.
func settledStatus(prev Status) Status {
	switch prev.State {
	case StateAuthenticated, StateUnauthenticated:
		return prev
	default:
		return newStatus(StateUnauthenticated, prev.IsHostEnvironment, true, nil, PassCancelledErr)
	}
}

func (r *Resolver) finishPass(p *Pass, st Status, err error) {
	r.mu.Lock()
	if r.passes[p.key] == p {
		delete(r.passes, p.key)
	}
	r.mu.Unlock()
	p.finish(st, err)
}

// resolve runs the cache check and then the environment branch. The
// returned status is meaningless if ctx was cancelled.
func (r *Resolver) resolve(ctx context.Context, logger zerolog.Logger, isHost bool) Status {
	ctx, span := r.tracer.Start(ctx, "auth.pass", trace.WithAttributes(attribute.Bool("host_environment", isHost)))
	defer span.End()

	if cached := r.loadCached(ctx, logger); cached != nil {
		span.SetAttributes(attribute.Bool("cache_hit", true), attribute.String("provider", cached.Provider().String()))
		return newStatus(StateAuthenticated, isHost, true, cached, nil)
	}

	var (
		sess session.Session
		err  error
	)
	if isHost {
		sess, err = r.resolveHost(ctx, logger)
	} else {
		sess, err = r.resolveExternal(ctx, logger)
	}
	if ctx.Err() != nil {
		return Status{}
	}

	if err == nil {
		err = r.commit(ctx, sess)
		if errors.Is(err, PassCancelledErr) {
			return Status{}
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unauthenticated")
		if session.IsRejected(err) {
			r.clearSession(ctx, logger)
		}
		logger.Info().Err(err).Bool("host_environment", isHost).Msg("authentication failed")
		return newStatus(StateUnauthenticated, isHost, true, nil, err)
	}

	span.SetAttributes(attribute.String("provider", sess.Provider().String()))
	logger.Info().Str("provider", sess.Provider().String()).Msg("authenticated")
	return newStatus(StateAuthenticated, isHost, true, sess, nil)
}

// loadCached returns a cached session that can be trusted without a
// network call. A stale external OAuth session is discarded.
func (r *Resolver) loadCached(ctx context.Context, logger zerolog.Logger) session.Session {
	cached, err := r.sessions.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("cached session unusable, treating as cache miss")
		return nil
	}
	if cached == nil {
		return nil
	}

	remaining, expires := session.RemainingValidity(cached, r.nowTime())
	if !expires || remaining > r.refreshMargin {
		r.recorder.CacheHit(cached.Provider())
		return cached
	}

	logger.Info().
		Str("provider", cached.Provider().String()).
		Dur("remaining", remaining).
		Msg("cached session within refresh margin, revalidating")
	r.clearSession(ctx, logger)
	return nil
}

func (r *Resolver) resolveHost(ctx context.Context, logger zerolog.Logger) (session.Session, error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.credentialWait)
	defer cancel()

	raw, err := host.WaitForCredential(waitCtx, r.probe, r.pollInterval)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Info().Err(err).Msg("host credential did not become available")
		return nil, &session.ValidationError{
			Provider: session.ProviderHostShell,
			Kind:     session.ErrNoCredentialAvailable,
			Cause:    err,
		}
	}
	return r.validate(ctx, r.hostShell, raw)
}

func (r *Resolver) resolveExternal(ctx context.Context, logger zerolog.Logger) (session.Session, error) {
	tok, err := r.tokens.Load(ctx)
	if err != nil {
		return nil, session.Transient(session.ProviderExternalOAuth, err)
	}
	if tok == "" {
		logger.Debug().Msg("no bearer token stored")
		return nil, session.NoCredential(session.ProviderExternalOAuth)
	}
	return r.validate(ctx, r.externalOAuth, tok)
}

// validate bounds v by the validation timeout. An expired timeout is a
// transient failure.
func (r *Resolver) validate(ctx context.Context, v provider.Validator, credential string) (session.Session, error) {
	vctx, cancel := context.WithTimeout(ctx, r.validationTimeout)
	defer cancel()

	start := time.Now()
	s, err := v.Validate(vctx, credential)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var verr *session.ValidationError
	if err != nil && !errors.As(err, &verr) {
		err = session.Transient(v.Provider(), err)
	}
	r.recorder.Validation(v.Provider(), validationResult(err), time.Since(start))
	return s, err
}

// commit persists s as the only session. A stored session of another
// provider is cleared first.
func (r *Resolver) commit(ctx context.Context, s session.Session) error {
	r.storeLock.Lock()
	defer r.storeLock.Unlock()

	if ctx.Err() != nil {
		return PassCancelledErr
	}

	if current, _ := r.sessions.Load(ctx); current != nil && current.Provider() != s.Provider() {
		if err := r.sessions.Clear(ctx); err != nil {
			return fmt.Errorf("clearing %s session: %w", current.Provider(), err)
		}
	}
	if err := r.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (r *Resolver) clearSession(ctx context.Context, logger zerolog.Logger) {
	if err := r.sessions.Clear(context.WithoutCancel(ctx)); err != nil {
		logger.Warn().Err(err).Msg("unable to clear session")
	}
}
