// Package session tracks whether the form creates a new record or edits an
// existing one, and decides which store operation a submit maps to.
package session

import (
	"sync"

	"budgetlog/internal/core"
)

type Mode int

const (
	Idle Mode = iota
	Editing
)

func (m Mode) String() string {
	if m == Editing {
		return "editing"
	}
	return "idle"
}

type Op int

const (
	OpAdd Op = iota
	OpUpdate
)

// Intent is the store operation a submit should perform.
type Intent struct {
	Op Op
	ID int64 // target of OpUpdate
}

// Lookup finds a record by id.
type Lookup interface {
	Get(id int64) (core.Transaction, bool)
}

// Controller is a two-state machine: Idle, or Editing a target id.
// It never touches the store.
type Controller struct {
	mu     sync.Mutex
	mode   Mode
	target int64
}

func New() *Controller {
	return &Controller{}
}

// Begin enters Editing(id) when id exists and returns the record so the form
// can be prefilled. An unknown id leaves the state untouched.
func (c *Controller) Begin(records Lookup, id int64) (core.Transaction, error) {
	t, ok := records.Get(id)
	if !ok {
		return core.Transaction{}, &core.NotFoundError{ID: id}
	}
	c.mu.Lock()
	c.mode, c.target = Editing, id
	c.mu.Unlock()
	return t, nil
}

// Resolve maps a submit to OpAdd while Idle or OpUpdate(target) while Editing.
func (c *Controller) Resolve() Intent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == Editing {
		return Intent{Op: OpUpdate, ID: c.target}
	}
	return Intent{Op: OpAdd}
}

// Cancel returns to Idle.
func (c *Controller) Cancel() { c.reset() }

// Completed returns to Idle after a successful update submit.
func (c *Controller) Completed() { c.reset() }

// Abandon returns to Idle when the target vanished under the edit.
func (c *Controller) Abandon() { c.reset() }

// Deleted aborts the edit when id is the record being edited, and reports
// whether it did.
func (c *Controller) Deleted(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == Editing && c.target == id {
		c.mode, c.target = Idle, 0
		return true
	}
	return false
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Target returns the id under edit and whether there is one.
func (c *Controller) Target() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target, c.mode == Editing
}

func (c *Controller) reset() {
	c.mu.Lock()
	c.mode, c.target = Idle, 0
	c.mu.Unlock()
}
