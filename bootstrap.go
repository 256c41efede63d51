package bytrofront

import (
	"encoding/json"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// configProbeJS reads the session configuration blob the game client keeps
// on the page once login completes.
const configProbeJS = `() => {
	if (window.hup && window.hup.config) {
		return JSON.stringify(window.hup.config);
	}
	return "";
}`

type bootstrapConfig struct {
	Headless      bool
	UserAgent     string
	ChromeBinPath string
	Timeout       time.Duration
}

// BootstrapOption configures the login bootstrap.
type BootstrapOption func(*bootstrapConfig)

func newDefaultBootstrapConfig() *bootstrapConfig {
	return &bootstrapConfig{
		Headless:  true,
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		Timeout:   90 * time.Second,
	}
}

// WithBootstrapHeadless toggles headless mode.
func WithBootstrapHeadless(headless bool) BootstrapOption {
	return func(c *bootstrapConfig) { c.Headless = headless }
}

// WithBootstrapUserAgent overrides the browser user agent.
func WithBootstrapUserAgent(userAgent string) BootstrapOption {
	return func(c *bootstrapConfig) { c.UserAgent = userAgent }
}

// WithChromeBinPath points the launcher at a specific Chrome binary.
func WithChromeBinPath(path string) BootstrapOption {
	return func(c *bootstrapConfig) { c.ChromeBinPath = path }
}

// WithBootstrapTimeout bounds the whole login flow.
func WithBootstrapTimeout(d time.Duration) BootstrapOption {
	return func(c *bootstrapConfig) { c.Timeout = d }
}

// GenerateConfig logs into the game website with a headless browser and
// returns the session configuration the page client exposes. The returned
// config authenticates the signed API until the backend expires the
// session; pair it with an AutoRefreshProvider to keep it fresh.
func GenerateConfig(username, password, domain string, options ...BootstrapOption) (*Config, error) {
	cfg := newDefaultBootstrapConfig()
	for _, option := range options {
		option(cfg)
	}

	// Disable leakless so environments that block its helper binary still
	// work.
	l := launcher.New().
		Leakless(false).
		Headless(cfg.Headless).
		Set("--no-sandbox").
		Set("user-agent", cfg.UserAgent)
	if cfg.ChromeBinPath != "" {
		l = l.Bin(cfg.ChromeBinPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, errors.Wrap(err, "launching browser")
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, errors.Wrap(err, "connecting to browser")
	}
	defer func() {
		if err := browser.Close(); err != nil {
			logrus.Warnf("closing browser: %v", err)
		}
		l.Cleanup()
	}()

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, errors.Wrap(err, "opening page")
	}
	page = page.Timeout(cfg.Timeout)

	siteURL := "https://www." + domain + "/"
	logrus.Debugf("navigating to %s", siteURL)
	if err := page.Navigate(siteURL); err != nil {
		return nil, errors.Wrapf(err, "navigating to %s", siteURL)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, errors.Wrap(err, "waiting for page load")
	}

	if err := submitLogin(page, username, password); err != nil {
		return nil, err
	}

	raw, err := awaitSessionConfig(page)
	if err != nil {
		return nil, err
	}

	var session Config
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, errors.Wrap(err, "decoding session config")
	}
	if session.WebAPI.Key == "" {
		return nil, errors.Wrap(ErrLoginFailed, "session config carries no API key")
	}

	logrus.Debugf("minted session config for user %s", session.UserID)
	return &session, nil
}

func submitLogin(page *rod.Page, username, password string) error {
	loginField, err := page.Element(`#loginbox input[name="username"]`)
	if err != nil {
		return errors.Wrap(ErrLoginFailed, "login form not found")
	}
	if err := loginField.Input(username); err != nil {
		return errors.Wrap(err, "entering username")
	}

	passwordField, err := page.Element(`#loginbox input[name="password"]`)
	if err != nil {
		return errors.Wrap(ErrLoginFailed, "password field not found")
	}
	if err := passwordField.Input(password); err != nil {
		return errors.Wrap(err, "entering password")
	}

	submit, err := page.Element(`#loginbox input[type="submit"]`)
	if err != nil {
		return errors.Wrap(ErrLoginFailed, "submit button not found")
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return errors.Wrap(err, "submitting login form")
	}
	return nil
}

// awaitSessionConfig polls the page until the client exposes its config
// blob. The page timeout set by the caller bounds the loop.
func awaitSessionConfig(page *rod.Page) (string, error) {
	for {
		obj, err := page.Eval(configProbeJS)
		if err != nil {
			return "", errors.Wrap(err, "probing for session config")
		}
		if raw := obj.Value.Str(); raw != "" {
			return raw, nil
		}
		time.Sleep(500 * time.Millisecond)
	}
}
