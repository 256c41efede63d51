package bytrofront

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ConfigProvider hands out the current session configuration. The request
// layer reads it on every call, so a provider may rotate the configuration
// underneath a running client.
type ConfigProvider interface {
	Config(ctx context.Context) (*Config, error)
}

// StaticProvider serves a fixed configuration.
type StaticProvider struct {
	cfg *Config
}

// NewStaticProvider wraps cfg in a provider.
func NewStaticProvider(cfg *Config) *StaticProvider {
	return &StaticProvider{cfg: cfg}
}

func (p *StaticProvider) Config(ctx context.Context) (*Config, error) {
	if p.cfg == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "static provider holds no config")
	}
	return p.cfg, nil
}

// RefreshFunc mints a fresh session configuration, typically by re-running
// the login bootstrap.
type RefreshFunc func(ctx context.Context) (*Config, error)

// AutoRefreshProvider keeps a session configuration fresh by re-minting it
// on an interval. Rotation is observable through Subscribe; there is no
// hidden global state, the provider is injected into the client like any
// other.
type AutoRefreshProvider struct {
	refresh RefreshFunc

	mu   sync.RWMutex
	cfg  *Config
	subs []func(*Config)

	done      chan struct{}
	closeOnce sync.Once
}

// NewAutoRefreshProvider performs an initial refresh and then keeps
// refreshing every interval until Close. A failed interval refresh keeps
// the previous configuration and is logged.
func NewAutoRefreshProvider(ctx context.Context, refresh RefreshFunc, interval time.Duration) (*AutoRefreshProvider, error) {
	p := &AutoRefreshProvider{
		refresh: refresh,
		done:    make(chan struct{}),
	}
	if err := p.Refresh(ctx); err != nil {
		return nil, err
	}

	go p.loop(interval)
	return p, nil
}

func (p *AutoRefreshProvider) loop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := p.Refresh(context.Background()); err != nil {
				logrus.Warnf("session refresh failed, keeping previous config: %v", err)
			}
		case <-p.done:
			return
		}
	}
}

func (p *AutoRefreshProvider) Config(ctx context.Context) (*Config, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cfg == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "no session config available")
	}
	return p.cfg, nil
}

// Refresh mints a new configuration now and notifies subscribers.
func (p *AutoRefreshProvider) Refresh(ctx context.Context) error {
	cfg, err := p.refresh(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.cfg = cfg
	subs := make([]func(*Config), len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(cfg)
	}
	return nil
}

// Subscribe registers fn to be called with every rotated configuration.
func (p *AutoRefreshProvider) Subscribe(fn func(*Config)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}

// Close stops the refresh loop.
func (p *AutoRefreshProvider) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}
