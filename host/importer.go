package host

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

// Importer imports modules over HTTP.
//
// A body that is valid JSON is a JSON module: objects expose their keys as
// exports, any other value becomes the default export. Everything else is
// scanned as an ES module with ScanExports.
type Importer struct {
	fetcher Fetcher
}

// NewImporter creates an Importer. A nil fetcher uses NewHTTPFetcher.
func NewImporter(f Fetcher) *Importer {
	if f == nil {
		f = NewHTTPFetcher()
	}
	return &Importer{fetcher: f}
}

// Import fetches url and returns its exports.
func (i *Importer) Import(ctx context.Context, url string) (any, error) {
	body, err := i.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", url, err)
	}

	if gjson.ValidBytes(body) {
		result := gjson.ParseBytes(body)
		if result.IsObject() {
			return result.Value(), nil
		}
		return map[string]any{"default": result.Value()}, nil
	}

	exports := ScanExports(url, body)
	if len(exports) == 0 {
		return nil, fmt.Errorf("import %s: no exports found", url)
	}
	return exports, nil
}
