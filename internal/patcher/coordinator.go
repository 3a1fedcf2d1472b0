package patcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/dshills/retrofit/internal/event"
	"github.com/dshills/retrofit/internal/host"
	"github.com/dshills/retrofit/internal/il"
	"github.com/dshills/retrofit/internal/inject"
)

type restorePoint struct {
	live     *il.Method
	original *il.Method
}

// BatchResult summarizes one batch of applications.
type BatchResult struct {
	// Total is the number of candidates attempted, already applied ones excluded.
	Total int

	// Skipped is the number of candidates left pending because their method
	// is disabled. They are not part of Total.
	Skipped int

	// Failed is the number of candidates that could not be applied.
	Failed int

	// Faults holds one *InstrumentationFault per failure.
	Faults []error
}

// Applied returns the number of candidates applied by the batch.
func (r BatchResult) Applied() int {
	return r.Total - r.Failed
}

func (r *BatchResult) merge(o BatchResult) {
	r.Total += o.Total
	r.Skipped += o.Skipped
	r.Failed += o.Failed
	r.Faults = append(r.Faults, o.Faults...)
}

// Coordinator tracks and applies instrumentation candidates.
// It is not safe for concurrent use.
type Coordinator struct {
	image    *host.Image
	registry *event.Registry

	candidates map[string]*Candidate
	order      []string

	pending  mapset.Set[string]
	applied  mapset.Set[string]
	disabled mapset.Set[string]
	detailed mapset.Set[string]

	// originals holds each touched method as it was before its first rewrite.
	originals map[string]restorePoint

	lazy        bool
	logPatching bool
	logger      *zap.Logger
}

// New creates a coordinator for candidates targeting methods of image.
// Ignored candidates are dropped.
func New(image *host.Image, registry *event.Registry, candidates []Candidate, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		image:      image,
		registry:   registry,
		candidates: make(map[string]*Candidate, len(candidates)),
		pending:    mapset.NewThreadUnsafeSet[string](),
		applied:    mapset.NewThreadUnsafeSet[string](),
		disabled:   mapset.NewThreadUnsafeSet[string](),
		detailed:   mapset.NewThreadUnsafeSet[string](),
		originals:  make(map[string]restorePoint),
		lazy:       true,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	for i := range candidates {
		cand := candidates[i]
		if _, dup := c.candidates[cand.Name]; dup {
			return nil, errors.Wrapf(ErrDuplicateCandidate, "%q", cand.Name)
		}
		if cand.Ignore {
			c.logger.Debug("candidate ignored", zap.String("candidate", cand.Name))
			continue
		}
		c.candidates[cand.Name] = &cand
		c.order = append(c.order, cand.Name)
		c.pending.Add(cand.Name)
	}
	return c, nil
}

// Lazy reports whether per-event candidates wait for a subscriber.
func (c *Coordinator) Lazy() bool {
	return c.lazy
}

// SetPatchLogging toggles debug logging of applied candidates.
func (c *Coordinator) SetPatchLogging(enabled bool) {
	c.logPatching = enabled
}

// SetDetailedLogging replaces the set of candidates whose rewritten body is logged.
func (c *Coordinator) SetDetailedLogging(names ...string) {
	c.detailed = mapset.NewThreadUnsafeSet(names...)
}

// Candidate returns a registered candidate.
func (c *Coordinator) Candidate(name string) (*Candidate, bool) {
	cand, ok := c.candidates[name]
	return cand, ok
}

// Candidates returns the registered candidates in registration order.
func (c *Coordinator) Candidates() []*Candidate {
	out := make([]*Candidate, len(c.order))
	for i, name := range c.order {
		out[i] = c.candidates[name]
	}
	return out
}

// IsApplied reports whether a candidate is applied.
func (c *Coordinator) IsApplied(name string) bool {
	return c.applied.Contains(name)
}

// Applied returns the applied candidate names, sorted.
func (c *Coordinator) Applied() []string {
	return sorted(c.applied)
}

// Pending returns the candidate names not yet applied, sorted.
func (c *Coordinator) Pending() []string {
	return sorted(c.pending)
}

// Start applies the startup batch: unconditional candidates in lazy mode,
// every candidate in eager mode.
func (c *Coordinator) Start() BatchResult {
	var names []string
	for _, name := range c.order {
		if !c.lazy || c.candidates[name].Unconditional() {
			names = append(names, name)
		}
	}
	res := c.applyAll(names)
	c.logger.Info("instrumentation started",
		zap.Bool("lazy", c.lazy),
		zap.Int("total", res.Total),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res
}

// ApplyFor applies every pending candidate that serves t.
func (c *Coordinator) ApplyFor(t event.EventType) BatchResult {
	var names []string
	for _, name := range c.order {
		if c.candidates[name].Serves(t) {
			names = append(names, name)
		}
	}
	res := c.applyAll(names)
	if c.logPatching {
		c.logger.Debug("instrumented for event",
			zap.Stringer("event", t),
			zap.Int("total", res.Total),
			zap.Int("failed", res.Failed),
		)
	}
	return res
}

// Instrumenter returns a hook suitable for event.Registry.SetInstrumenter.
func (c *Coordinator) Instrumenter() func(event.EventType) {
	return func(t event.EventType) {
		c.ApplyFor(t)
	}
}

func (c *Coordinator) applyAll(names []string) BatchResult {
	var res BatchResult
	for _, name := range names {
		if c.applied.Contains(name) {
			continue
		}
		if c.disabled.Contains(c.candidates[name].Target()) {
			res.Skipped++
			continue
		}
		res.Total++
		if err := c.Apply(name); err != nil {
			res.Failed++
			res.Faults = append(res.Faults, err)
		}
	}
	return res
}

// Apply applies one candidate. Applying an applied candidate is a no-op.
// A candidate targeting a disabled method stays pending and Apply returns
// ErrMethodDisabled.
func (c *Coordinator) Apply(name string) (err error) {
	cand, ok := c.candidates[name]
	if !ok {
		return errors.Wrapf(ErrUnknownCandidate, "%q", name)
	}
	if c.applied.Contains(name) {
		return nil
	}
	if c.disabled.Contains(cand.Target()) {
		c.logger.Debug("candidate skipped, method disabled",
			zap.String("candidate", name),
			zap.String("method", cand.Target()),
		)
		return errors.Wrapf(ErrMethodDisabled, "%s", cand.Target())
	}

	defer func() {
		if v := recover(); v != nil {
			err = errors.Wrapf(ErrRewritePanic, "%v", v)
		}
		if err != nil {
			err = &InstrumentationFault{Candidate: name, Method: cand.Target(), Err: err}
			c.logger.Error("instrumentation fault",
				zap.String("candidate", name),
				zap.Error(err),
			)
		}
	}()

	if cand.Rewrite == nil {
		return ErrNoRewrite
	}
	m, err := c.image.Method(cand.Type, cand.Method)
	if err != nil {
		return err
	}

	logger := c.logger.Named(name)
	j := inject.New(m, inject.WithLogger(logger))
	ctx := &Context{Candidate: cand, Registry: c.registry, Image: c.image, Logger: logger}
	if err := cand.Rewrite(j, ctx); err != nil {
		return err
	}

	original := m.Clone()
	if err := j.Commit(); err != nil {
		return err
	}
	if _, seen := c.originals[m.FullName()]; !seen {
		c.originals[m.FullName()] = restorePoint{live: m, original: original}
	}
	c.pending.Remove(name)
	c.applied.Add(name)

	if c.logPatching {
		logger.Debug("candidate applied",
			zap.String("method", m.FullName()),
			zap.Int("added", j.Added()),
			zap.Int("removed", j.Removed()),
		)
	}
	if c.detailed.Contains(name) {
		logger.Info("patched body\n" + j.Disassemble())
	}
	return nil
}

// Disable reverts a method to its original body and keeps every candidate
// targeting it from applying until Enable.
func (c *Coordinator) Disable(method string) {
	c.disabled.Add(method)
	if c.restore(method) {
		c.logger.Info("method disabled and restored", zap.String("method", method))
	}
}

// Enable lifts a Disable. Candidates are not reapplied until requested.
func (c *Coordinator) Enable(method string) {
	c.disabled.Remove(method)
}

// Disabled returns the disabled methods, sorted.
func (c *Coordinator) Disabled() []string {
	return sorted(c.disabled)
}

// Rollback restores every rewritten method and returns all candidates to
// pending. It returns the number of methods restored.
func (c *Coordinator) Rollback() int {
	methods := make([]string, 0, len(c.originals))
	for name := range c.originals {
		methods = append(methods, name)
	}
	sort.Strings(methods)

	restored := 0
	for _, name := range methods {
		if c.restore(name) {
			restored++
		}
	}
	c.applied.Clear()
	c.pending.Clear()
	for _, name := range c.order {
		c.pending.Add(name)
	}
	c.logger.Info("instrumentation rolled back", zap.Int("methods", restored))
	return restored
}

// restore puts back a method's original body and returns its candidates to pending.
func (c *Coordinator) restore(method string) bool {
	rp, ok := c.originals[method]
	if !ok {
		return false
	}
	*rp.live = *rp.original.Clone()
	for _, name := range c.order {
		if c.candidates[name].Target() == method && c.applied.Contains(name) {
			c.applied.Remove(name)
			c.pending.Add(name)
		}
	}
	delete(c.originals, method)
	if c.logPatching {
		c.logger.Debug("method restored", zap.String("method", method))
	}
	return true
}

// Describe renders the partition, one candidate per line.
func (c *Coordinator) Describe() string {
	var sb strings.Builder
	for _, cand := range c.Candidates() {
		state := "pending"
		switch {
		case c.applied.Contains(cand.Name):
			state = "applied"
		case c.disabled.Contains(cand.Target()):
			state = "disabled"
		}
		events := "unconditional"
		if !cand.Unconditional() {
			events = fmt.Sprint(cand.Events)
		}
		fmt.Fprintf(&sb, "%-8s %-32s %-40s %s\n", state, cand.Name, cand.Target(), events)
	}
	return sb.String()
}

func sorted(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	return out
}
