package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"

	cdnmod "github.com/albertocavalcante/go-cdnmod"
	"github.com/albertocavalcante/go-cdnmod/provider"
)

// Rule matching modes accepted in documents.
const (
	MatchFirst   = "first"
	MatchLongest = "longest"
)

// Providers configures provider aliases and the default base.
type Providers struct {
	// Default is used by modules that name no provider.
	Default string `json:"default,omitempty"`

	// Aliases are merged over the built-in aliases.
	Aliases map[string]string `json:"aliases,omitempty"`
}

// Config is a decoded configuration document.
type Config struct {
	Providers         Providers                 `json:"providers,omitempty"`
	FallbackProviders []string                  `json:"fallbackProviders,omitempty"`
	ProxyMode         string                    `json:"proxyMode,omitempty"`
	Hostname          string                    `json:"hostname,omitempty"`
	RuleMatching      string                    `json:"ruleMatching,omitempty"`
	Modules           []cdnmod.ModuleDescriptor `json:"modules,omitempty"`
	Tools             []cdnmod.ModuleDescriptor `json:"tools,omitempty"`
	DynamicModules    []cdnmod.DynamicRule      `json:"dynamicModules,omitempty"`
}

// Load reads and parses the document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a JSON or YAML document, checks it against the schema and
// validates it. Schema and semantic problems are reported as
// *ValidationErrors.
func Parse(data []byte) (*Config, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validateSchema(jsonData); err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field rules the schema cannot express.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if _, err := c.matching(); err != nil {
		errs.Add("ruleMatching", err.Error())
	}

	seen := make(map[string]string)
	check := func(section string, mods []cdnmod.ModuleDescriptor, requireGlobal bool) {
		for i, mod := range mods {
			field := fmt.Sprintf("%s[%d]", section, i)
			if mod.Name == "" {
				errs.Add(field+".name", "name is required")
				continue
			}
			if prev, ok := seen[mod.Name]; ok {
				errs.Addf(field+".name", "duplicate module name %q (first declared at %s)", mod.Name, prev)
			} else {
				seen[mod.Name] = field
			}
			if requireGlobal && mod.Global == "" {
				errs.Add(field+".global", "tools are loaded as scripts and need a global")
			}
		}
	}
	check("modules", c.Modules, false)
	check("tools", c.Tools, true)

	prefixes := make(map[string]int)
	for i, rule := range c.DynamicModules {
		field := fmt.Sprintf("dynamicModules[%d].prefix", i)
		if rule.Prefix == "" {
			errs.Add(field, "prefix is required")
			continue
		}
		if prev, ok := prefixes[rule.Prefix]; ok {
			errs.Addf(field, "duplicate prefix %q (first declared at dynamicModules[%d])", rule.Prefix, prev)
			continue
		}
		prefixes[rule.Prefix] = i
	}

	return errs.ToError()
}

// Warnings reports settings that are accepted but probably unintended: an
// unrecognized proxyMode, which behaves like auto, and dynamic rules that can
// never match under first-match ordering because an earlier rule's prefix is
// a prefix of theirs.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.ProxyMode != "" && string(provider.ParseProxyMode(c.ProxyMode)) != strings.ToLower(strings.TrimSpace(c.ProxyMode)) {
		warnings = append(warnings, fmt.Sprintf("proxyMode %q is not one of auto, proxy, direct; using %q", c.ProxyMode, provider.ProxyAuto))
	}
	if m, _ := c.matching(); m != cdnmod.FirstMatch {
		return warnings
	}
	for j, later := range c.DynamicModules {
		for i := range j {
			earlier := c.DynamicModules[i]
			if earlier.Prefix != later.Prefix && strings.HasPrefix(later.Prefix, earlier.Prefix) {
				warnings = append(warnings, fmt.Sprintf(
					"dynamicModules[%d] prefix %q is shadowed by dynamicModules[%d] prefix %q; set ruleMatching to %q to prefer the longer prefix",
					j, later.Prefix, i, earlier.Prefix, MatchLongest))
				break
			}
		}
	}
	return warnings
}

func (c *Config) matching() (cdnmod.RuleMatching, error) {
	switch c.RuleMatching {
	case "", MatchFirst:
		return cdnmod.FirstMatch, nil
	case MatchLongest:
		return cdnmod.LongestPrefixMatch, nil
	default:
		return cdnmod.FirstMatch, fmt.Errorf("unknown rule matching %q", c.RuleMatching)
	}
}

// Options converts the document into client options.
func (c *Config) Options() []cdnmod.Option {
	var opts []cdnmod.Option
	if c.Providers.Default != "" {
		opts = append(opts, cdnmod.WithDefaultProvider(c.Providers.Default))
	}
	if len(c.Providers.Aliases) > 0 {
		opts = append(opts, cdnmod.WithAliases(c.Providers.Aliases))
	}
	if len(c.FallbackProviders) > 0 {
		opts = append(opts, cdnmod.WithFallbackProviders(c.FallbackProviders...))
	}
	if c.ProxyMode != "" {
		opts = append(opts, cdnmod.WithProxyMode(c.ProxyMode))
	}
	if c.Hostname != "" {
		opts = append(opts, cdnmod.WithHostname(c.Hostname))
	}
	if m, err := c.matching(); err == nil {
		opts = append(opts, cdnmod.WithRuleMatching(m))
	}
	return opts
}

// Lookup returns the module or tool declared under name.
// Modules take precedence over tools.
func (c *Config) Lookup(name string) (cdnmod.ModuleDescriptor, bool) {
	for _, mod := range c.Modules {
		if mod.Name == name {
			return mod, true
		}
	}
	for _, tool := range c.Tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return cdnmod.ModuleDescriptor{}, false
}

// All returns the modules followed by the tools.
func (c *Config) All() []cdnmod.ModuleDescriptor {
	all := make([]cdnmod.ModuleDescriptor, 0, len(c.Modules)+len(c.Tools))
	all = append(all, c.Modules...)
	return append(all, c.Tools...)
}
