// Package arch is the bridge between the engine and architecture-specific
// decode rules. A concrete architecture registers itself at init time;
// the CLI selects one by name and asks it to populate an instruction
// table before the engine runs.
package arch

import (
	"fmt"
	"sort"

	"romdis/internal/dis"
)

// Architecture supplies the decode rules for one instruction set. All
// byte-level semantics live in the actions it registers.
type Architecture interface {
	// Name identifies the architecture on the command line.
	Name() string
	// DefaultEntry is the conventional entry address used when the
	// caller does not supply one.
	DefaultEntry() dis.Address
	// Register populates the instruction table. A duplicate
	// registration error here is a plugin bug and aborts startup.
	Register(t *dis.Table) error
}

var registry = make(map[string]Architecture)

// Register adds an architecture to the registry. It panics on a duplicate
// name, which is a programming error in the plugin.
func Register(a Architecture) {
	if _, ok := registry[a.Name()]; ok {
		panic(fmt.Sprintf("architecture already registered: %s", a.Name()))
	}
	registry[a.Name()] = a
}

// Lookup returns the named architecture.
func Lookup(name string) (Architecture, bool) {
	a, ok := registry[name]
	return a, ok
}

// Names lists the registered architectures in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
