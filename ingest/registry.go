package ingest

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/docfind/docfind/errors"
)

// Handler converts one file into a Result. Handlers are expected to never
// panic; Dispatch defends against it regardless.
type Handler func(path string, fileType string) Result

// Registry maps extension tokens to conversion handlers. Dispatch is a pure
// lookup: exactly one handler per token, no fallback chains.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *zap.SugaredLogger
}

// NewRegistry creates an empty converter registry
func NewRegistry(logger *zap.SugaredLogger) *Registry {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register binds a handler to one or more extension tokens. Registering a
// token twice is a configuration error and fails fast at startup, not at
// dispatch time.
func (r *Registry) Register(handler Handler, tokens ...string) error {
	if handler == nil {
		return errors.New("nil handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range tokens {
		key := strings.ToLower(token)
		if _, dup := r.handlers[key]; dup {
			return errors.Newf("handler already registered for type %q", key)
		}
		r.handlers[key] = handler
	}
	return nil
}

// Resolve returns the handler for a type token, case-insensitively
func (r *Registry) Resolve(token string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[strings.ToLower(token)]
	return h, ok
}

// Types returns the registered tokens (unordered)
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}

// Dispatch resolves and invokes the handler for a file. An unregistered
// type is a normal failure path, stored and surfaced like any other
// conversion failure. A panicking handler is wrapped into a failed Result
// so a single file's converter defect cannot abort the batch.
func (r *Registry) Dispatch(path string, token string) (result Result) {
	handler, ok := r.Resolve(token)
	if !ok {
		return Failed("Unsupported file type: %s", token)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorw("Converter panicked",
				"path", path,
				"type", token,
				"panic", rec,
			)
			result = Failed("converter for type %q panicked: %v", token, rec)
		}
	}()

	return handler(path, token)
}
