package record

import (
	"context"
	"errors"
	"slices"
	"sync"

	cdnmod "github.com/albertocavalcante/go-cdnmod"
)

// Recorder is a cdnmod.ModuleResolver that passes every resolution through
// to another resolver and records its outcome. Descriptors with an explicit
// URL are not recorded, nor are failures other than *cdnmod.ResolutionError
// (cancellation, invalid descriptors). A Recorder is safe for concurrent use.
type Recorder struct {
	next cdnmod.ModuleResolver

	mu  sync.Mutex
	rec *Record
}

// NewRecorder wraps next with an empty record.
func NewRecorder(next cdnmod.ModuleResolver) *Recorder {
	return &Recorder{next: next, rec: New()}
}

// Resolve resolves desc with the wrapped resolver and records the outcome.
// The result and error are returned unchanged.
func (r *Recorder) Resolve(ctx context.Context, desc cdnmod.ModuleDescriptor) (*cdnmod.ResolutionResult, error) {
	res, err := r.next.Resolve(ctx, desc)
	if desc.URL != "" {
		return res, err
	}

	entry := Entry{Fingerprint: Fingerprint(desc)}
	var resErr *cdnmod.ResolutionError
	switch {
	case err == nil:
		entry.URL = res.URL
		entry.Tried = slices.Clone(res.Tried)
	case errors.As(err, &resErr):
		entry.Tried = slices.Clone(resErr.Tried)
		entry.Error = err.Error()
	default:
		return res, err
	}

	r.mu.Lock()
	r.rec.Set(desc.Name, entry)
	r.mu.Unlock()
	return res, err
}

// Record returns a copy of what has been recorded so far.
func (r *Recorder) Record() *Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec.Clone()
}
