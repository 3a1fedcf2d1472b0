package event

// Deniable is implemented by payloads whose host action can be vetoed.
type Deniable interface {
	// Allowed reports whether the host action will proceed.
	Allowed() bool

	// SetAllowed allows or denies the host action.
	SetAllowed(allowed bool)

	// HardDenied reports whether dispatch was stopped.
	HardDenied() bool

	// HardDeny denies the action and stops dispatch after the current handler.
	HardDeny()
}

// Denial is an embeddable Deniable. The zero value is allowed.
type Denial struct {
	denied     bool
	hardDenied bool
}

// Allow returns a Denial in the given state.
func Allow(allowed bool) Denial {
	return Denial{denied: !allowed}
}

// Allowed reports whether the host action will proceed.
func (d *Denial) Allowed() bool {
	return !d.denied && !d.hardDenied
}

// SetAllowed allows or denies the host action. A hard denial cannot be undone.
func (d *Denial) SetAllowed(allowed bool) {
	d.denied = !allowed
}

// HardDenied reports whether dispatch was stopped.
func (d *Denial) HardDenied() bool {
	return d.hardDenied
}

// HardDeny denies the action and stops dispatch.
func (d *Denial) HardDeny() {
	d.denied = true
	d.hardDenied = true
}
