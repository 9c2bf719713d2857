// Package app implements the cdnmod command line.
package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cdnmod "github.com/albertocavalcante/go-cdnmod"
	"github.com/albertocavalcante/go-cdnmod/config"
)

// EnvPrefix is the prefix of environment variables read by the CLI,
// e.g. CDNMOD_CONFIG or CDNMOD_LOG_LEVEL.
const EnvPrefix = "CDNMOD"

// Version is set at build time.
var Version = "dev"

// Flag keys shared by viper and cobra.
const (
	keyConfig    = "config"
	keyLogLevel  = "log-level"
	keyProxyMode = "proxy-mode"
	keyHostname  = "hostname"
	keyTimeout   = "timeout"
)

// env carries per-invocation state through the command tree.
type env struct {
	v *viper.Viper

	// extra options appended after the document and flag options.
	extra []cdnmod.Option
}

// NewRootCmd creates the cdnmod command tree.
func NewRootCmd(opts ...cdnmod.Option) *cobra.Command {
	e := &env{v: viper.New(), extra: opts}
	e.v.SetEnvPrefix(EnvPrefix)
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	e.v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "cdnmod",
		Short:        "Resolve and load modules from CDN origins",
		Long:         "cdnmod resolves module descriptors against a prioritized list of\ncontent-delivery origins and produces import maps for host pages.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringP(keyConfig, "c", "cdnmod.yaml", "Configuration document (JSON or YAML)")
	flags.String(keyLogLevel, "", "Log level (debug, info, warn, error)")
	flags.String(keyProxyMode, "", "Proxy mode (auto, proxy, direct); overrides the document")
	flags.String(keyHostname, "", "Host assets are served to; loopback names select CI providers in auto mode")
	flags.Duration(keyTimeout, 0, "Timeout of a single probe attempt")
	for _, key := range []string{keyConfig, keyLogLevel, keyProxyMode, keyHostname, keyTimeout} {
		if err := e.v.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", key, err))
		}
	}

	root.AddCommand(
		newResolveCmd(e),
		newCandidatesCmd(e),
		newImportMapCmd(e),
		newLoadCmd(e),
		newVersionCmd(),
	)
	return root
}

// session is a loaded document plus the client built from it.
type session struct {
	cfg    *config.Config
	client *cdnmod.Client
}

func (e *env) open(cmd *cobra.Command) (*session, error) {
	logger, err := newLogger(e.v.GetString(keyLogLevel), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	path := e.v.GetString(keyConfig)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(w, "config", path)
	}

	opts := cfg.Options()
	opts = append(opts, cdnmod.WithLogger(logger))
	if mode := e.v.GetString(keyProxyMode); mode != "" {
		opts = append(opts, cdnmod.WithProxyMode(mode))
	}
	if host := e.v.GetString(keyHostname); host != "" {
		opts = append(opts, cdnmod.WithHostname(host))
	}
	if timeout := e.v.GetDuration(keyTimeout); timeout > 0 {
		opts = append(opts, cdnmod.WithTimeout(timeout))
	}
	opts = append(opts, e.extra...)

	client, err := cdnmod.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return &session{cfg: cfg, client: client}, nil
}

// descriptor finds name among the configured modules and tools, then among
// the dynamic rules.
func (s *session) descriptor(name string) (cdnmod.ModuleDescriptor, error) {
	if desc, ok := s.cfg.Lookup(name); ok {
		return desc, nil
	}
	matching := cdnmod.FirstMatch
	if s.cfg.RuleMatching == config.MatchLongest {
		matching = cdnmod.LongestPrefixMatch
	}
	if rule, ok := cdnmod.MatchRule(name, s.cfg.DynamicModules, matching); ok {
		return rule.Descriptor(name), nil
	}
	return cdnmod.ModuleDescriptor{}, fmt.Errorf("%w: %s", errUnknownModule, name)
}

// selected returns the descriptors for names, or every module and tool when
// names is empty.
func (s *session) selected(names []string) ([]cdnmod.ModuleDescriptor, error) {
	if len(names) == 0 {
		return s.cfg.All(), nil
	}
	descs := make([]cdnmod.ModuleDescriptor, 0, len(names))
	for _, name := range names {
		desc, err := s.descriptor(name)
		if err != nil {
			return nil, err
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

var errUnknownModule = errors.New("module not declared in configuration")

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cdnmod %s\n", Version)
		},
	}
}

// defaultCommandTimeout bounds a whole command run.
const defaultCommandTimeout = 2 * time.Minute
