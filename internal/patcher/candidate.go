package patcher

import (
	"slices"

	"go.uber.org/zap"

	"github.com/dshills/retrofit/internal/event"
	"github.com/dshills/retrofit/internal/host"
	"github.com/dshills/retrofit/internal/inject"
)

// Context is handed to every rewrite.
type Context struct {
	// Candidate is the candidate being applied.
	Candidate *Candidate

	// Registry resolves payload dispatchers.
	Registry *event.Registry

	// Image is the host image the target belongs to.
	Image *host.Image

	// Logger is named after the candidate.
	Logger *zap.Logger
}

// RewriteFunc rewrites one method body through an injector. The coordinator
// commits the injector when the rewrite returns nil.
type RewriteFunc func(j *inject.Injector, ctx *Context) error

// Candidate is a host method eligible for one instrumentation.
type Candidate struct {
	// Name identifies the candidate in logs and configuration.
	Name string

	// Type and Method name the target host method.
	Type   string
	Method string

	// Events are the events the rewrite serves. Empty means unconditional.
	Events []event.EventType

	// Rewrite performs the instrumentation.
	Rewrite RewriteFunc

	// Ignore excludes the candidate from every batch.
	Ignore bool
}

// Target returns "Type.Method".
func (c *Candidate) Target() string {
	return c.Type + "." + c.Method
}

// Unconditional reports whether the candidate serves no event.
func (c *Candidate) Unconditional() bool {
	return len(c.Events) == 0
}

// Serves reports whether the candidate serves t.
func (c *Candidate) Serves(t event.EventType) bool {
	return slices.Contains(c.Events, t)
}
