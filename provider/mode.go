package provider

import (
	"os"
	"strings"
)

// ProxyMode selects between CI-facing and production-facing providers.
type ProxyMode string

const (
	// ProxyAuto prefers the CI provider only on CI-like hosts.
	ProxyAuto ProxyMode = "auto"

	// ProxyProxy always prefers the CI/proxy provider.
	ProxyProxy ProxyMode = "proxy"

	// ProxyDirect always prefers the production provider.
	ProxyDirect ProxyMode = "direct"
)

// DefaultProxyModeEnv is the environment variable consulted for a proxy
// mode override when no explicit override is configured.
const DefaultProxyModeEnv = "CDNMOD_PROXY_MODE"

// ParseProxyMode parses a mode name. Unrecognized or empty values yield ProxyAuto.
func ParseProxyMode(s string) ProxyMode {
	switch ProxyMode(strings.ToLower(strings.TrimSpace(s))) {
	case ProxyProxy:
		return ProxyProxy
	case ProxyDirect:
		return ProxyDirect
	default:
		return ProxyAuto
	}
}

// ModeResolver determines the effective proxy mode.
//
// The zero value reads DefaultProxyModeEnv from the process environment and
// treats the host as non-CI.
type ModeResolver struct {
	// Override is an explicit mode, typically from configuration or a flag.
	Override string

	// EnvVar names the environment override. Empty means DefaultProxyModeEnv.
	EnvVar string

	// LookupEnv reads the environment. Nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Hostname is the host the assets are served to, used by the auto heuristic.
	Hostname string
}

// Resolve returns the explicit override if it is a recognized non-auto
// mode, then the environment override, then ProxyAuto. It never fails.
func (r ModeResolver) Resolve() ProxyMode {
	if mode := ParseProxyMode(r.Override); mode != ProxyAuto {
		return mode
	}

	envVar := r.EnvVar
	if envVar == "" {
		envVar = DefaultProxyModeEnv
	}
	lookup := r.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if value, ok := lookup(envVar); ok {
		if mode := ParseProxyMode(value); mode != ProxyAuto {
			return mode
		}
	}
	return ProxyAuto
}

// PreferCI reports whether the CI-facing provider should be tried first.
func (r ModeResolver) PreferCI() bool {
	switch r.Resolve() {
	case ProxyProxy:
		return true
	case ProxyAuto:
		return IsLikelyCIHost(r.Hostname)
	default:
		return false
	}
}

// IsLikelyCIHost reports whether host is a loopback name.
// This is a heuristic used only to bias ProxyAuto.
func IsLikelyCIHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1", "[::1]":
		return true
	default:
		return false
	}
}
