package inject

import (
	"slices"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dshills/retrofit/internal/il"
)

// Cursor passed as an offset means "at the current cursor".
const Cursor = -1

// Option configures an Injector.
type Option func(*Injector)

// WithLogger sets the injector logger.
func WithLogger(logger *zap.Logger) Option {
	return func(j *Injector) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// Injector is a cursor-based rewrite buffer over one method.
type Injector struct {
	method *il.Method
	work   *il.Method

	// marks[i] is true when work.Body[i] was injected.
	marks   []bool
	index   int
	added   int
	removed int

	logger *zap.Logger
}

// New creates an injector over a copy of m's body.
func New(m *il.Method, opts ...Option) *Injector {
	work := m.Clone()
	j := &Injector{
		method: m,
		work:   work,
		marks:  make([]bool, len(work.Body)),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.logger = j.logger.With(zap.String("method", m.FullName()))
	return j
}

// Method returns the method being rewritten. Its body changes only on Commit.
func (j *Injector) Method() *il.Method {
	return j.method
}

// Work returns the working copy of the method. Its body is the write list.
func (j *Injector) Work() *il.Method {
	return j.work
}

// Index returns the cursor.
func (j *Injector) Index() int {
	return j.index
}

// Len returns the current body length.
func (j *Injector) Len() int {
	return len(j.work.Body)
}

// At returns a copy of the instruction at i.
func (j *Injector) At(i int) il.Instruction {
	return j.work.Body[i].Clone()
}

// Added returns the number of instructions inserted so far.
func (j *Injector) Added() int {
	return j.added
}

// Removed returns the number of instructions removed so far.
func (j *Injector) Removed() int {
	return j.removed
}

// Snapshot returns an immutable view of the current buffer.
func (j *Injector) Snapshot() il.Snapshot {
	return il.NewSnapshot(j.work.Body)
}

// Injected returns the injected spans as offset to count, in current indexes.
func (j *Injector) Injected() map[int]int {
	spans := make(map[int]int)
	start := -1
	for i, m := range j.marks {
		switch {
		case m && start < 0:
			start = i
		case !m && start >= 0:
			spans[start] = i - start
			start = -1
		}
	}
	if start >= 0 {
		spans[start] = len(j.marks) - start
	}
	return spans
}

// DefineLabel allocates a label unused in the method.
func (j *Injector) DefineLabel() il.Label {
	return j.work.DefineLabel()
}

// DeclareLocal adds a local slot to the working copy and returns its index.
func (j *Injector) DeclareLocal(name, typ string) int {
	return j.work.DeclareLocal(name, typ)
}

// Goto moves the cursor to offset.
func (j *Injector) Goto(offset int) error {
	if offset < 0 || offset > len(j.work.Body) {
		return errors.Wrapf(ErrOutOfRange, "goto %d of %d", offset, len(j.work.Body))
	}
	j.index = offset
	return nil
}

// Skip moves the cursor by n, which may be negative.
func (j *Injector) Skip(n int) error {
	return j.Goto(j.index + n)
}

func (j *Injector) resolve(offset int) (int, error) {
	if offset == Cursor {
		return j.index, nil
	}
	if offset < 0 || offset > len(j.work.Body) {
		return 0, errors.Wrapf(ErrOutOfRange, "offset %d of %d", offset, len(j.work.Body))
	}
	return offset, nil
}

// InjectAt inserts instrs at offset, or at the cursor when offset is Cursor,
// and leaves the cursor after them. Labels stay on the instructions that carry
// them, so a label on the instruction previously at offset now follows the
// inserted span. Use MoveLabels to retarget it.
func (j *Injector) InjectAt(offset int, instrs ...il.Instruction) error {
	at, err := j.resolve(offset)
	if err != nil {
		return err
	}
	if len(instrs) == 0 {
		j.index = at
		return nil
	}
	j.work.Body = slices.Insert(j.work.Body, at, il.CloneBody(instrs)...)
	j.marks = slices.Insert(j.marks, at, trueN(len(instrs))...)
	j.index = at + len(instrs)
	j.added += len(instrs)
	return nil
}

// Inject inserts instrs at the cursor.
func (j *Injector) Inject(instrs ...il.Instruction) error {
	return j.InjectAt(Cursor, instrs...)
}

// Remove deletes count instructions at offset, or at the cursor. It fails
// without changes when any of them carries a label.
func (j *Injector) Remove(count, offset int) error {
	at, err := j.resolve(offset)
	if err != nil {
		return err
	}
	if count < 0 || at+count > len(j.work.Body) {
		return errors.Wrapf(ErrOutOfRange, "remove %d at %d of %d", count, at, len(j.work.Body))
	}
	for i := at; i < at+count; i++ {
		if len(j.work.Body[i].Labels) > 0 {
			return errors.Wrapf(ErrLabeledRemoval, "instruction %d carries %v", i, j.work.Body[i].Labels)
		}
	}
	j.work.Body = slices.Delete(j.work.Body, at, at+count)
	j.marks = slices.Delete(j.marks, at, at+count)
	j.index = at
	j.removed += count
	return nil
}

// MoveInstructions moves count instructions from oldOffset to newOffset.
// newOffset is an index in the body before the move. The cursor ends after
// the moved block. Labels travel with their instructions.
func (j *Injector) MoveInstructions(oldOffset, newOffset, count int) error {
	n := len(j.work.Body)
	if count < 0 || oldOffset < 0 || oldOffset+count > n {
		return errors.Wrapf(ErrOutOfRange, "move %d from %d of %d", count, oldOffset, n)
	}
	if newOffset < 0 || newOffset > n {
		return errors.Wrapf(ErrOutOfRange, "move to %d of %d", newOffset, n)
	}
	if newOffset > oldOffset && newOffset < oldOffset+count {
		return errors.Wrapf(ErrOutOfRange, "move target %d inside moved block [%d,%d)", newOffset, oldOffset, oldOffset+count)
	}
	if newOffset == oldOffset || count == 0 {
		j.index = oldOffset + count
		return nil
	}

	block := slices.Clone(j.work.Body[oldOffset : oldOffset+count])
	marks := slices.Clone(j.marks[oldOffset : oldOffset+count])
	j.work.Body = slices.Delete(j.work.Body, oldOffset, oldOffset+count)
	j.marks = slices.Delete(j.marks, oldOffset, oldOffset+count)

	dest := newOffset
	if newOffset > oldOffset {
		dest -= count
	}
	j.work.Body = slices.Insert(j.work.Body, dest, block...)
	j.marks = slices.Insert(j.marks, dest, marks...)
	j.index = dest + count
	return nil
}

// Shift moves count instructions at offset (or the cursor) by amount.
func (j *Injector) Shift(amount, count, offset int) error {
	at, err := j.resolve(offset)
	if err != nil {
		return err
	}
	if amount > 0 {
		// The block moves past amount instructions that follow it.
		return j.MoveInstructions(at, at+count+amount, count)
	}
	return j.MoveInstructions(at, at+amount, count)
}

// MoveLabels moves every label attached to the instruction at from onto the
// instruction at to.
func (j *Injector) MoveLabels(from, to int) error {
	n := len(j.work.Body)
	if from < 0 || from >= n || to < 0 || to >= n {
		return errors.Wrapf(ErrOutOfRange, "move labels %d -> %d of %d", from, to, n)
	}
	if from == to {
		return nil
	}
	src := &j.work.Body[from]
	dst := &j.work.Body[to]
	dst.Labels = append(dst.Labels, src.Labels...)
	src.Labels = nil
	return nil
}

// AddLabel attaches l to the instruction at offset.
func (j *Injector) AddLabel(offset int, l il.Label) error {
	if offset < 0 || offset >= len(j.work.Body) {
		return errors.Wrapf(ErrOutOfRange, "label %s at %d of %d", l, offset, len(j.work.Body))
	}
	j.work.Body[offset].Labels = append(j.work.Body[offset].Labels, l)
	return nil
}

// Disassemble renders the current buffer with injected spans marked.
func (j *Injector) Disassemble() string {
	return il.Disassemble(j.work, il.WithInjected(j.Injected()))
}

// Commit validates the buffer and installs it as the method's body.
func (j *Injector) Commit() error {
	if err := il.Validate(j.work.Body); err != nil {
		return errors.Wrapf(err, "commit %s", j.method.FullName())
	}
	*j.method = *j.work.Clone()
	j.logger.Debug("body committed",
		zap.Int("added", j.added),
		zap.Int("removed", j.removed),
		zap.Int("len", len(j.work.Body)),
	)
	return nil
}

func trueN(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}
