package generation

import (
	"sync"

	"github.com/uniedit/videogen/internal/module/provider"
)

// Controller allows one in-flight run per family. Installing a new run
// cancels the one it replaces.
type Controller struct {
	family provider.Family

	mu      sync.Mutex
	current *Run
}

func newController(family provider.Family) *Controller {
	return &Controller{family: family}
}

// Family returns the family the controller serves.
func (c *Controller) Family() provider.Family {
	return c.family
}

// Current returns the in-flight run, if any.
func (c *Controller) Current() (*Run, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.current != nil
}

// install makes r the in-flight run and cancels its predecessor.
func (c *Controller) install(r *Run) {
	c.mu.Lock()
	prev := c.current
	c.current = r
	c.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
}

// release clears r if it is still the in-flight run.
func (c *Controller) release(r *Run) {
	c.mu.Lock()
	if c.current == r {
		c.current = nil
	}
	c.mu.Unlock()
}
