package cdnmod

import (
	"slices"
	"strings"

	"github.com/albertocavalcante/go-cdnmod/provider"
)

// Conventional subdirectories tried after the bare asset path.
var conventionalSubdirs = []string{"", "umd/", "dist/"}

// BuildCandidates returns the candidate URLs for desc across bases, in base
// priority order and without duplicates.
//
// For each base the package root is base + package + "@version". An explicit
// Path is appended once. Otherwise PathPrefix/File is appended as-is, under
// umd/ and under dist/. With neither, the package root itself is the candidate.
// Empty bases are skipped.
func BuildCandidates(desc ModuleDescriptor, bases []string) []string {
	pkg := desc.PackageName()
	version := ""
	if desc.Version != "" {
		version = "@" + desc.Version
	}

	var suffixes []string
	if explicit := strings.TrimLeft(desc.Path, "/"); explicit != "" {
		suffixes = []string{"/" + explicit}
	} else if combined := combinedPath(desc.PathPrefix, desc.File); combined != "" {
		suffixes = make([]string, 0, len(conventionalSubdirs))
		for _, dir := range conventionalSubdirs {
			suffixes = append(suffixes, "/"+dir+combined)
		}
	} else {
		suffixes = []string{""}
	}

	seen := make(map[string]bool)
	candidates := make([]string, 0, len(bases)*len(suffixes))
	for _, base := range bases {
		if base == "" {
			continue
		}
		root := base + pkg + version
		for _, suffix := range suffixes {
			c := root + suffix
			if seen[c] {
				continue
			}
			seen[c] = true
			candidates = append(candidates, c)
		}
	}
	return candidates
}

func combinedPath(prefix, file string) string {
	prefix = strings.Trim(prefix, "/")
	file = strings.TrimLeft(file, "/")
	switch {
	case prefix == "":
		return file
	case file == "":
		return prefix
	default:
		return prefix + "/" + file
	}
}

// selectProvider picks the descriptor's primary provider.
//
// With dual providers the CI side wins when preferCI is set, the production
// side otherwise, each falling back to the other. Without them the plain
// provider is used, then the default base.
func selectProvider(desc ModuleDescriptor, preferCI bool, snap provider.Snapshot) string {
	if desc.CIProvider != "" || desc.ProductionProvider != "" {
		if preferCI {
			return firstNonEmpty(desc.CIProvider, desc.ProductionProvider)
		}
		return firstNonEmpty(desc.ProductionProvider, desc.CIProvider)
	}
	return firstNonEmpty(desc.Provider, snap.DefaultBase())
}

// collectBases returns the normalized, deduplicated provider bases of desc
// in priority order.
func collectBases(desc ModuleDescriptor, preferCI bool, snap provider.Snapshot) []string {
	var bases []string
	add := func(raw string) {
		base := snap.Normalize(raw)
		if base == "" || slices.Contains(bases, base) {
			return
		}
		bases = append(bases, base)
	}

	add(selectProvider(desc, preferCI, snap))
	add(desc.Provider)
	add(desc.CIProvider)
	add(desc.ProductionProvider)
	if desc.FallbackAllowed() {
		for _, fb := range snap.FallbackProviders() {
			add(fb)
		}
	}
	return bases
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
