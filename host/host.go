// Package host detects the trusted host shell and reads the opaque init
// payload it exposes. It performs no network I/O.
package host

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"
)

// DefaultPollInterval is how often WaitForCredential re-reads the bridge.
const DefaultPollInterval = 100 * time.Millisecond

// ErrNotHostEnvironment is returned by WaitForCredential when the host shell
// is not (or no longer) present.
var ErrNotHostEnvironment = errors.New("not running inside the host shell")

// Credential is the host-issued init payload. An empty Raw means the bridge
// is present but has not finished initializing.
type Credential struct {
	Raw string
}

// Ready reports whether the payload is available.
func (c *Credential) Ready() bool {
	return c != nil && c.Raw != ""
}

// Bridge is the ambient host-shell interface. Both methods are read-only and
// must reflect the state at call time.
type Bridge interface {
	Available() bool
	InitData() string
}

// EnvironmentProbe is what the resolver asks about the host shell.
type EnvironmentProbe interface {
	// IsHostEnvironment reports whether the app runs inside the host shell.
	IsHostEnvironment(ctx context.Context) bool

	// ExtractCredential returns nil outside the host shell. Inside it, the
	// returned credential may not be Ready yet.
	ExtractCredential(ctx context.Context) *Credential
}

// Adapter implements EnvironmentProbe over a Bridge without caching anything.
type Adapter struct {
	bridge Bridge
}

var _ EnvironmentProbe = (*Adapter)(nil)

// NewAdapter wraps bridge. A nil bridge never reports a host environment.
func NewAdapter(bridge Bridge) *Adapter {
	if bridge == nil {
		bridge = NoHost{}
	}
	return &Adapter{bridge: bridge}
}

func (a *Adapter) IsHostEnvironment(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	return a.bridge.Available()
}

func (a *Adapter) ExtractCredential(ctx context.Context) *Credential {
	if !a.IsHostEnvironment(ctx) {
		return nil
	}
	return &Credential{Raw: a.bridge.InitData()}
}

// WaitForCredential polls probe until the host credential is ready. Waiting
// is not a failure; it ends only when the credential appears, the host shell
// disappears, or ctx is done.
func WaitForCredential(ctx context.Context, probe EnvironmentProbe, interval time.Duration) (string, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		cred := probe.ExtractCredential(ctx)
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if cred == nil {
			return "", ErrNotHostEnvironment
		}
		if cred.Ready() {
			return cred.Raw, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// NoHost is a Bridge for standalone runs.
type NoHost struct{}

func (NoHost) Available() bool  { return false }
func (NoHost) InitData() string { return "" }

// EnvBridge reads the init payload from an environment variable. The host
// environment is present when the variable is set, even if it is empty.
type EnvBridge struct {
	Name string
}

func (b EnvBridge) Available() bool {
	_, ok := os.LookupEnv(b.Name)
	return b.Name != "" && ok
}

func (b EnvBridge) InitData() string {
	if b.Name == "" {
		return ""
	}
	return os.Getenv(b.Name)
}

// StaticBridge is a Bridge whose state is set by the embedding program, for
// example when the host shell delivers its payload asynchronously.
type StaticBridge struct {
	mu        sync.RWMutex
	available bool
	initData  string
}

// NewStaticBridge returns a bridge with the given initial state.
func NewStaticBridge(available bool, initData string) *StaticBridge {
	return &StaticBridge{available: available, initData: initData}
}

func (b *StaticBridge) Available() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.available
}

func (b *StaticBridge) InitData() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.initData
}

// SetAvailable marks the host shell present or absent.
func (b *StaticBridge) SetAvailable(available bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.available = available
}

// SetInitData publishes the init payload.
func (b *StaticBridge) SetInitData(initData string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initData = initData
}

// FuncBridge adapts two functions to a Bridge. Nil functions report no host.
type FuncBridge struct {
	AvailableFunc func() bool
	InitDataFunc  func() string
}

func (b FuncBridge) Available() bool {
	return b.AvailableFunc != nil && b.AvailableFunc()
}

func (b FuncBridge) InitData() string {
	if b.InitDataFunc == nil {
		return ""
	}
	return b.InitDataFunc()
}
