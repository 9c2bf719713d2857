// Package provider normalizes content-delivery origins and decides which
// origin family a resolution should prefer.
//
// # Provider Bases
//
// A provider base is the root URL every candidate for a module is built
// from. Bases are always normalized before they are compared or stored:
//
//	unpkg.com            -> https://unpkg.com/
//	https://esm.sh       -> https://esm.sh/
//	/vendor//            -> /vendor/
//
// A [Table] maps short aliases ("jsdelivr", "unpkg") to bases and holds the
// default base and the ordered fallback list. Tables are safe for concurrent
// use; [Table.Snapshot] gives one resolution a consistent view even when the
// table is reconfigured while that resolution is in flight.
//
// # Proxy Mode
//
// When a module offers both a CI-facing and a production-facing provider,
// [ModeResolver] decides which one is tried first:
//
//	mode := provider.ModeResolver{Hostname: "localhost"}
//	if mode.PreferCI() {
//	    // CI/proxy origin first
//	}
//
// The mode comes from an explicit override, then the CDNMOD_PROXY_MODE
// environment variable, then "auto", where a loopback host counts as CI.
package provider
