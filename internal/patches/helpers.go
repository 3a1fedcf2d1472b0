package patches

import (
	"github.com/cockroachdb/errors"

	"github.com/dshills/retrofit/internal/il"
	"github.com/dshills/retrofit/internal/inject"
)

// injectLoads inserts instrs at offset and moves the labels of the displaced
// instruction onto the first of them.
func injectLoads(j *inject.Injector, offset int, instrs ...il.Instruction) error {
	displaced := offset < j.Len()
	if err := j.InjectAt(offset, instrs...); err != nil {
		return err
	}
	if !displaced {
		return nil
	}
	return j.MoveLabels(offset+len(instrs), offset)
}

func localIndex(m *il.Method, name string) (int, error) {
	for i, l := range m.Locals {
		if l.Name == name {
			return i, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownLocal, "%s in %s", name, m.FullName())
}
