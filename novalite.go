// Package novalite is the top-level facade for the NovaLite engine.
package novalite

import (
	"github.com/tuannm99/novalite/internal/engine"
	"github.com/tuannm99/novalite/internal/sql/executor"
)

type (
	Session = engine.Session
	Options = engine.Options
	Result  = executor.Result
)

// Open starts a session on a new, empty in-memory database.
func Open() *Session {
	return engine.NewSession(engine.DefaultOptions())
}

// OpenWith starts a session with the given options.
func OpenWith(opts Options) *Session {
	return engine.NewSession(opts)
}

// DefaultOptions enables hash joins and join reordering.
func DefaultOptions() Options {
	return engine.DefaultOptions()
}
