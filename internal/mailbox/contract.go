package mailbox

import (
	"fmt"
	"slices"

	"tirc/internal/classes"
)

// Contract lists the async methods a process class accepts as messages.
type Contract struct {
	Class   string
	methods map[string]classes.ReceiverMode
}

// ContractOf builds the contract of a process class.
func ContractOf(def *classes.ClassDef) (*Contract, error) {
	if def == nil {
		return nil, fmt.Errorf("nil class")
	}
	if !def.IsProcess() {
		return nil, fmt.Errorf("class %q is not a process", def.Name)
	}
	c := &Contract{Class: def.Name, methods: make(map[string]classes.ReceiverMode)}
	for _, m := range def.Methods {
		if m.Receiver.IsAsync() {
			c.methods[m.Name] = m.Receiver
		}
	}
	return c, nil
}

// Accepts reports whether method may be sent to the process.
func (c *Contract) Accepts(method string) bool {
	_, ok := c.methods[method]
	return ok
}

// Mode returns the receiver mode of an accepted method.
func (c *Contract) Mode(method string) (classes.ReceiverMode, bool) {
	r, ok := c.methods[method]
	return r, ok
}

// Methods returns the accepted method names, sorted.
func (c *Contract) Methods() []string {
	out := make([]string, 0, len(c.methods))
	for name := range c.methods {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
