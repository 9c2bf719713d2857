package host

import (
	"bytes"
	"encoding/json"
	"regexp"
)

// Evaluator runs a classic script and returns the globals it defines.
// (*Runtime).Evaluate is the default.
type Evaluator func(url string, source []byte) (map[string]any, error)

// ScriptExport stands in for an ES module export whose value is not a JSON
// literal.
type ScriptExport struct {
	Name   string
	URL    string
	Source string
}

var (
	exportDecl = regexp.MustCompile(`(?m)^\s*export\s+(?:var|let|const)\s+([A-Za-z_$][\w$]*)\s*=`)
	exportDef  = regexp.MustCompile(`(?m)^\s*export\s+default\s+`)
)

// ScanExports extracts the exports of an ES module source.
// "export default" is bound under "default".
func ScanExports(url string, source []byte) map[string]any {
	exports := make(map[string]any)
	for _, m := range exportDecl.FindAllSubmatchIndex(source, -1) {
		name := string(source[m[2]:m[3]])
		if _, ok := exports[name]; ok {
			continue
		}
		exports[name] = literalOr(source[m[1]:], ScriptExport{Name: name, URL: url, Source: string(source)})
	}
	if loc := exportDef.FindIndex(source); loc != nil {
		exports["default"] = literalOr(source[loc[1]:], ScriptExport{Name: "default", URL: url, Source: string(source)})
	}
	return exports
}

// literalOr decodes the JSON value at the start of src, or returns fallback.
func literalOr(src []byte, fallback any) any {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimLeft(src, " \t\r\n")))
	var v any
	if err := dec.Decode(&v); err != nil {
		return fallback
	}
	return v
}
