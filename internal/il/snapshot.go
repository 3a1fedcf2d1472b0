package il

import "iter"

// Predicate selects instructions during a search.
type Predicate func(Instruction) bool

// IsOp matches instructions with the given opcode.
func IsOp(op Opcode) Predicate {
	return func(i Instruction) bool { return i.Op == op }
}

// IsCallTo matches Call and CallVirt instructions targeting a Func by name.
func IsCallTo(name string) Predicate {
	return func(i Instruction) bool {
		if !i.Op.IsCall() {
			return false
		}
		f, ok := i.Operand.(*Func)
		return ok && f.Name == name
	}
}

// IsNewObj matches constructor calls for a type.
func IsNewObj(typ string) Predicate {
	return func(i Instruction) bool {
		c, ok := i.Operand.(*Ctor)
		return i.Op == NewObj && ok && c.Type == typ
	}
}

// Snapshot is an immutable ordered view over a method body.
// It is safe to keep a Snapshot while the body it was taken from is rewritten.
type Snapshot struct {
	body []Instruction
}

// NewSnapshot copies body into a new snapshot.
func NewSnapshot(body []Instruction) Snapshot {
	return Snapshot{body: CloneBody(body)}
}

// Len returns the number of instructions.
func (s Snapshot) Len() int {
	return len(s.body)
}

// At returns a copy of the instruction at index i.
func (s Snapshot) At(i int) Instruction {
	return s.body[i].Clone()
}

// Instructions returns a copy of the whole body.
func (s Snapshot) Instructions() []Instruction {
	return CloneBody(s.body)
}

// All iterates over index and instruction pairs.
func (s Snapshot) All() iter.Seq2[int, Instruction] {
	return func(yield func(int, Instruction) bool) {
		for i, ins := range s.body {
			if !yield(i, ins.Clone()) {
				return
			}
		}
	}
}

// Find returns the first matching instruction.
func (s Snapshot) Find(match Predicate) (Instruction, bool) {
	if i := s.FindIndex(0, match); i >= 0 {
		return s.At(i), true
	}
	return Instruction{}, false
}

// FindIndex returns the index of the first match at or after start, or -1.
func (s Snapshot) FindIndex(start int, match Predicate) int {
	for i := max(start, 0); i < len(s.body); i++ {
		if match(s.body[i]) {
			return i
		}
	}
	return -1
}

// FindLast returns the last matching instruction.
func (s Snapshot) FindLast(match Predicate) (Instruction, bool) {
	if i := s.FindLastIndex(match); i >= 0 {
		return s.At(i), true
	}
	return Instruction{}, false
}

// FindLastIndex returns the index of the last match, or -1.
func (s Snapshot) FindLastIndex(match Predicate) int {
	for i := len(s.body) - 1; i >= 0; i-- {
		if match(s.body[i]) {
			return i
		}
	}
	return -1
}

// FindAll returns the indexes of every match in order.
func (s Snapshot) FindAll(match Predicate) []int {
	var out []int
	for i, ins := range s.body {
		if match(ins) {
			out = append(out, i)
		}
	}
	return out
}

// FindNth returns the index of the nth match at or after start, or -1.
// n is 1-based; zero is treated as one and negative n never matches.
func (s Snapshot) FindNth(n int, match Predicate, start int) int {
	if n < 0 {
		return -1
	}
	n = max(n, 1)
	for i := max(start, 0); i < len(s.body); i++ {
		if !match(s.body[i]) {
			continue
		}
		n--
		if n == 0 {
			return i
		}
	}
	return -1
}

// FindNthReverse returns the index of the nth match counting from the end,
// after skipping skip instructions at the end, or -1.
func (s Snapshot) FindNthReverse(n int, match Predicate, skip int) int {
	if n < 0 {
		return -1
	}
	n = max(n, 1)
	for i := len(s.body) - 1 - max(skip, 0); i >= 0; i-- {
		if !match(s.body[i]) {
			continue
		}
		n--
		if n == 0 {
			return i
		}
	}
	return -1
}

// Range returns a copy of count instructions starting at start.
// The range is clamped to the body.
func (s Snapshot) Range(start, count int) []Instruction {
	start = min(max(start, 0), len(s.body))
	end := min(start+max(count, 0), len(s.body))
	return CloneBody(s.body[start:end])
}

// LabelTarget returns the index of the instruction carrying l, or -1.
func (s Snapshot) LabelTarget(l Label) int {
	return s.FindIndex(0, func(i Instruction) bool { return i.HasLabel(l) })
}

// Labels maps every attached label to the index that carries it.
func (s Snapshot) Labels() map[Label]int {
	out := make(map[Label]int)
	for i, ins := range s.body {
		for _, l := range ins.Labels {
			out[l] = i
		}
	}
	return out
}
