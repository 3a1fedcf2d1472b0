package inject_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/retrofit/internal/il"
	"github.com/dshills/retrofit/internal/inject"
)

func nops(n int) []il.Instruction {
	out := make([]il.Instruction, n)
	for i := range out {
		out[i] = il.New(il.LdcI4, i)
	}
	return out
}

func method(body []il.Instruction) *il.Method {
	return &il.Method{DeclaringType: "Door", Name: "Open", Body: body}
}

func ops(body []il.Instruction) []any {
	out := make([]any, len(body))
	for i, ins := range body {
		out[i] = ins.Operand
	}
	return out
}

// TestInjectAtShiftsAndKeepsLabels verifies inserted spans shift later
// instructions and a label stays resolvable.
func TestInjectAtShiftsAndKeepsLabels(t *testing.T) {
	body := nops(4)
	body[2] = body[2].WithLabels(7)
	body = append(body, il.New(il.Br, il.Label(7)))
	j := inject.New(method(body))

	require.NoError(t, j.InjectAt(2, il.Simple(il.Nop), il.Simple(il.Nop)))
	assert.Equal(t, 4, j.Index())
	assert.Equal(t, 7, j.Len())
	assert.Equal(t, map[int]int{2: 2}, j.Injected())
	assert.Equal(t, 4, j.Snapshot().LabelTarget(7))

	require.NoError(t, j.Inject(il.Simple(il.Nop)))
	assert.Equal(t, 5, j.Index())
	assert.Equal(t, map[int]int{2: 3}, j.Injected())
	assert.Equal(t, 3, j.Added())
	require.NoError(t, il.Validate(j.Snapshot().Instructions()))
}

func TestCommitIsAtomic(t *testing.T) {
	m := method(nops(3))
	j := inject.New(m)

	require.NoError(t, j.InjectAt(0, il.Simple(il.Nop)))
	assert.Len(t, m.Body, 3, "method must not change before commit")

	require.NoError(t, j.Commit())
	assert.Len(t, m.Body, 4)
	assert.Equal(t, il.Nop, m.Body[0].Op)

	// A dangling branch fails validation and leaves the method alone.
	require.NoError(t, j.Inject(il.New(il.Br, il.Label(99))))
	err := j.Commit()
	assert.True(t, errors.Is(err, il.ErrDanglingLabel), "got %v", err)
	assert.Len(t, m.Body, 4)
}

func TestRemove(t *testing.T) {
	body := nops(5)
	body[3] = body[3].WithLabels(1)
	body = append(body, il.New(il.Br, il.Label(1)))
	j := inject.New(method(body))

	err := j.Remove(2, 2)
	assert.True(t, errors.Is(err, inject.ErrLabeledRemoval), "got %v", err)
	assert.Equal(t, 6, j.Len(), "failed removal must not change the buffer")

	require.NoError(t, j.MoveLabels(3, 4))
	require.NoError(t, j.Remove(2, 2))
	assert.Equal(t, 4, j.Len())
	assert.Equal(t, 2, j.Removed())
	assert.Equal(t, 2, j.Index())
	assert.Equal(t, 2, j.Snapshot().LabelTarget(1))
	require.NoError(t, j.Commit())

	assert.True(t, errors.Is(j.Remove(10, 0), inject.ErrOutOfRange))
}

func TestMoveInstructions(t *testing.T) {
	tests := []struct {
		name       string
		old, new   int
		count      int
		want       []any
		wantCursor int
	}{
		{name: "forward", old: 0, new: 4, count: 2, want: []any{2, 3, 0, 1, 4}, wantCursor: 4},
		{name: "backward", old: 3, new: 1, count: 2, want: []any{0, 3, 4, 1, 2}, wantCursor: 3},
		{name: "to end", old: 1, new: 5, count: 1, want: []any{0, 2, 3, 4, 1}, wantCursor: 5},
		{name: "same place", old: 2, new: 2, count: 1, want: []any{0, 1, 2, 3, 4}, wantCursor: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := inject.New(method(nops(5)))
			require.NoError(t, j.MoveInstructions(tt.old, tt.new, tt.count))
			assert.Equal(t, tt.want, ops(j.Snapshot().Instructions()))
			assert.Equal(t, tt.wantCursor, j.Index())
		})
	}

	j := inject.New(method(nops(5)))
	assert.True(t, errors.Is(j.MoveInstructions(0, 1, 3), inject.ErrOutOfRange))
}

func TestShift(t *testing.T) {
	j := inject.New(method(nops(5)))
	require.NoError(t, j.Shift(2, 1, 0))
	assert.Equal(t, []any{1, 2, 0, 3, 4}, ops(j.Snapshot().Instructions()))

	require.NoError(t, j.Shift(-1, 2, 3))
	assert.Equal(t, []any{1, 2, 3, 4, 0}, ops(j.Snapshot().Instructions()))
}

func TestCursor(t *testing.T) {
	j := inject.New(method(nops(3)))
	require.NoError(t, j.Goto(3))
	require.NoError(t, j.Skip(-2))
	assert.Equal(t, 1, j.Index())
	assert.True(t, errors.Is(j.Goto(4), inject.ErrOutOfRange))
	assert.True(t, errors.Is(j.Skip(-5), inject.ErrOutOfRange))
	assert.Equal(t, 1, j.Index())

	require.NoError(t, j.Inject(il.Simple(il.Nop)))
	assert.Equal(t, il.Nop, j.At(1).Op)
}

func TestMoveLabels(t *testing.T) {
	body := nops(3)
	body[0] = body[0].WithLabels(1, 2)
	j := inject.New(method(body))

	require.NoError(t, j.MoveLabels(0, 2))
	assert.Empty(t, j.At(0).Labels)
	assert.Equal(t, []il.Label{1, 2}, j.At(2).Labels)
	assert.True(t, errors.Is(j.MoveLabels(0, 3), inject.ErrOutOfRange))
}

func TestDisassembleMarksInjected(t *testing.T) {
	j := inject.New(method(nops(2)))
	require.NoError(t, j.InjectAt(1, il.Simple(il.Dup)))
	out := j.Disassemble()
	assert.Contains(t, out, "Door.Open()")
	assert.Contains(t, out, "+ 0001")
}
