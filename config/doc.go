// Package config loads cdnmod configuration documents.
//
// A document is JSON or YAML. It is checked against an embedded JSON Schema,
// decoded into a Config and then validated semantically:
//
//	cfg, err := config.Load("cdnmod.yaml")
//	if err != nil {
//	    return err
//	}
//	client, err := cdnmod.New(cfg.Options()...)
//
// All problems found in one pass are reported together as *ValidationErrors.
// Ambiguous dynamic rule prefixes are not errors; they are returned by
// Config.Warnings.
package config
