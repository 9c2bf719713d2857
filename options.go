package cdnmod

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/albertocavalcante/go-cdnmod/probe"
	"github.com/albertocavalcante/go-cdnmod/provider"
)

// DefaultMaxConcurrency bounds batch fan-out in ToolsLoader and BuildImportMap.
const DefaultMaxConcurrency = 5

// Option configures a Client or Resolver.
type Option func(*clientConfig) error

// clientConfig holds all client configuration.
type clientConfig struct {
	defaultProvider string
	aliases         map[string]string
	fallbacks       []string

	proxyMode    string
	proxyModeEnv string
	hostname     string
	lookupEnv    func(string) (string, bool)

	httpClient *http.Client
	timeout    time.Duration
	baseURL    string
	probeOpts  *probe.Options
	sleep      probe.SleepFunc
	prober     Prober

	scripts  ScriptHost
	importer ModuleImporter

	matching       RuleMatching
	maxConcurrency int

	// logger is the structured logger for debug/info output.
	// If nil, logging is disabled (silent mode).
	logger *slog.Logger
}

// WithDefaultProvider sets the base used when a module names no provider.
// The value is normalized literally; aliases are not consulted.
func WithDefaultProvider(base string) Option {
	return func(c *clientConfig) error {
		c.defaultProvider = base
		return nil
	}
}

// WithAliases merges provider aliases over the built-in ones.
func WithAliases(aliases map[string]string) Option {
	return func(c *clientConfig) error {
		if c.aliases == nil {
			c.aliases = make(map[string]string, len(aliases))
		}
		for k, v := range aliases {
			c.aliases[k] = v
		}
		return nil
	}
}

// WithFallbackProviders sets the providers tried after a module's own
// providers, in priority order. Aliases are resolved.
func WithFallbackProviders(providers ...string) Option {
	return func(c *clientConfig) error {
		c.fallbacks = append(c.fallbacks, providers...)
		return nil
	}
}

// WithProxyMode sets an explicit proxy mode ("auto", "proxy" or "direct").
// Unrecognized values behave like "auto".
func WithProxyMode(mode string) Option {
	return func(c *clientConfig) error {
		c.proxyMode = mode
		return nil
	}
}

// WithProxyModeEnv sets the environment variable consulted for the proxy mode.
func WithProxyModeEnv(name string) Option {
	return func(c *clientConfig) error {
		if name == "" {
			return errors.New("proxy mode environment variable name must not be empty")
		}
		c.proxyModeEnv = name
		return nil
	}
}

// WithHostname sets the host assets are served to. Loopback names make
// "auto" proxy mode prefer CI providers.
func WithHostname(host string) Option {
	return func(c *clientConfig) error {
		c.hostname = host
		return nil
	}
}

// WithLookupEnv replaces os.LookupEnv for proxy mode detection.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(c *clientConfig) error {
		c.lookupEnv = fn
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client for probes and asset fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) error {
		c.httpClient = client
		return nil
	}
}

// WithTimeout sets the timeout of a single probe attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) error {
		c.timeout = d
		return nil
	}
}

// WithBaseURL sets the origin root-relative providers are resolved against
// when probing and fetching, for example "http://localhost:8080".
func WithBaseURL(base string) Option {
	return func(c *clientConfig) error {
		c.baseURL = base
		return nil
	}
}

// WithProbeOptions sets retry and fallback behavior of probes.
func WithProbeOptions(opts probe.Options) Option {
	return func(c *clientConfig) error {
		c.probeOpts = &opts
		return nil
	}
}

// WithSleep replaces the probe backoff sleep.
func WithSleep(sleep probe.SleepFunc) Option {
	return func(c *clientConfig) error {
		c.sleep = sleep
		return nil
	}
}

// WithProber replaces the HTTP prober. Probe-related options are then ignored.
func WithProber(p Prober) Option {
	return func(c *clientConfig) error {
		c.prober = p
		return nil
	}
}

// WithScriptHost sets the environment scripts are injected into.
func WithScriptHost(h ScriptHost) Option {
	return func(c *clientConfig) error {
		c.scripts = h
		return nil
	}
}

// WithImporter sets the module importer.
func WithImporter(i ModuleImporter) Option {
	return func(c *clientConfig) error {
		c.importer = i
		return nil
	}
}

// WithRuleMatching selects how dynamic rules are matched against names.
func WithRuleMatching(m RuleMatching) Option {
	return func(c *clientConfig) error {
		c.matching = m
		return nil
	}
}

// WithMaxConcurrency bounds batch fan-out. Zero means DefaultMaxConcurrency.
func WithMaxConcurrency(n int) Option {
	return func(c *clientConfig) error {
		c.maxConcurrency = n
		return nil
	}
}

// WithLogger sets a structured logger for resolution diagnostics.
// If not set, logging is disabled (silent mode).
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("component", "cdnmod")
//	client, err := cdnmod.New(cdnmod.WithLogger(logger))
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) error {
		c.logger = l
		return nil
	}
}

// validate checks the configuration for logical consistency.
func (c *clientConfig) validate() error {
	if c.timeout < 0 {
		return errors.New("timeout must be positive")
	}
	if c.maxConcurrency < 0 {
		return errors.New("max concurrency must not be negative")
	}
	if c.probeOpts != nil {
		if c.probeOpts.Retries < 0 {
			return errors.New("probe retries must not be negative")
		}
		if c.probeOpts.Backoff < 0 {
			return errors.New("probe backoff must not be negative")
		}
	}
	switch c.matching {
	case FirstMatch, LongestPrefixMatch:
	default:
		return errors.New("unknown rule matching mode")
	}
	return nil
}

// log returns the configured logger, or a no-op logger if none was set.
func (c *clientConfig) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(slog.DiscardHandler)
}

// newClientConfig applies the given options and validates the result.
func newClientConfig(opts ...Option) (*clientConfig, error) {
	c := &clientConfig{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *clientConfig) limit() int {
	if c.maxConcurrency > 0 {
		return c.maxConcurrency
	}
	return DefaultMaxConcurrency
}

func (c *clientConfig) table() *provider.Table {
	t := provider.NewTable()
	if len(c.aliases) > 0 {
		t.SetAliases(c.aliases)
	}
	if c.defaultProvider != "" {
		t.SetDefaultBase(c.defaultProvider)
	}
	if len(c.fallbacks) > 0 {
		t.SetFallbackProviders(c.fallbacks)
	}
	return t
}

func (c *clientConfig) modeResolver() provider.ModeResolver {
	return provider.ModeResolver{
		Override:  c.proxyMode,
		EnvVar:    c.proxyModeEnv,
		LookupEnv: c.lookupEnv,
		Hostname:  c.hostname,
	}
}

func (c *clientConfig) newProber() Prober {
	if c.prober != nil {
		return c.prober
	}
	opts := []probe.Option{
		probe.WithLogger(c.log()),
	}
	if c.httpClient != nil {
		opts = append(opts, probe.WithHTTPClient(c.httpClient))
	}
	if c.timeout > 0 {
		opts = append(opts, probe.WithTimeout(c.timeout))
	}
	if c.probeOpts != nil {
		opts = append(opts, probe.WithOptions(*c.probeOpts))
	}
	if c.sleep != nil {
		opts = append(opts, probe.WithSleep(c.sleep))
	}
	if c.baseURL != "" {
		opts = append(opts, probe.WithBaseURL(c.baseURL))
	}
	return probe.New(opts...)
}
