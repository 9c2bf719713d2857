// Package host provides a Go-side host environment for loaded assets.
//
// A Document models the page that scripts are injected into: every loaded
// script is recorded as a <script src> element in the page head, and the
// globals the script declares land in a binding table that callers read back
// by name. The page also carries the import map element.
//
// An Importer fetches ES or JSON modules and returns their exports.
//
// Classic scripts run in a Runtime, a JavaScript VM whose global object is
// window. Globals a script creates, including the ones a UMD wrapper
// assigns through its global parameter, are exported to Go values and bound
// in the document. ES modules are not executed: Importer reads their exports
// from the source, and values that are not JSON literals are bound as
// ScriptExport placeholders carrying the source.
//
//	doc, _ := host.NewDocument(host.WithFetcher(host.NewHTTPFetcher()))
//	if err := doc.LoadScript(ctx, "https://unpkg.com/lib@1/lib.js"); err != nil {
//	    return err
//	}
//	v, ok := doc.Global("lib")
package host
