package cdnmod

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for resolution and loading failures.
var (
	// ErrConfiguration indicates a descriptor or rule set cannot be acted on.
	ErrConfiguration = errors.New("invalid module configuration")

	// ErrNoDynamicRule indicates no dynamic rule prefix matches a module name.
	ErrNoDynamicRule = errors.New("no dynamic rule")

	// ErrUnresolvable indicates every candidate URL failed its probe.
	ErrUnresolvable = errors.New("module URL unresolvable")

	// ErrLoad indicates a reachable asset failed to load.
	ErrLoad = errors.New("module load failed")

	// ErrGlobalNotFound indicates a script loaded but its global binding is absent.
	ErrGlobalNotFound = errors.New("global not found")
)

// ConfigurationError is returned when a module cannot be resolved or loaded
// because of how it is described.
type ConfigurationError struct {
	// Module is the requested module name.
	Module string
	// Reason is a human-readable description of the problem.
	Reason string
	// Err is an optional underlying sentinel such as ErrNoDynamicRule.
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Module == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error for module %s: %s", e.Module, e.Reason)
}

// Is reports ErrConfiguration. Wrapped sentinels match through Unwrap.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ResolutionError is returned when no candidate URL for a module is reachable.
type ResolutionError struct {
	// Module is the requested module name.
	Module string
	// Tried lists every URL probed, in order.
	Tried []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unable to resolve URL for module %s (tried: %s)", e.Module, strings.Join(e.Tried, ", "))
}

// Is reports ErrUnresolvable.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrUnresolvable
}

// LoadError is returned when a URL probed successfully but loading the asset
// failed, or the expected global was absent afterward.
type LoadError struct {
	Module string
	URL    string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load module %s from %s: %v", e.Module, e.URL, e.Err)
}

// Is reports ErrLoad.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
