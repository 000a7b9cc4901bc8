package dis

import (
	"sort"
)

// SymbolTable maps addresses to optional names. An empty name is a known
// address whose name will be synthesised at render time. Merging follows
// the rule that a named entry is never downgraded by a later unnamed
// discovery, while a later named discovery may fill in a previously unset
// name.
type SymbolTable struct {
	byAddr map[Address]string
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{byAddr: make(map[Address]string)}
}

// Add records addr with the given name. Pass an empty name for an address
// discovered without one.
func (t *SymbolTable) Add(addr Address, name string) {
	if existing, ok := t.byAddr[addr]; ok && name == "" && existing != "" {
		return
	}
	t.byAddr[addr] = name
}

// Has reports whether addr is in the table.
func (t *SymbolTable) Has(addr Address) bool {
	_, ok := t.byAddr[addr]
	return ok
}

// Name returns the recorded name for addr. The second result is false when
// the address is unknown; a known address may still have an empty name.
func (t *SymbolTable) Name(addr Address) (string, bool) {
	name, ok := t.byAddr[addr]
	return name, ok
}

// Addresses returns the table's addresses in increasing order.
func (t *SymbolTable) Addresses() []Address {
	addrs := make([]Address, 0, len(t.byAddr))
	for a := range t.byAddr {
		addrs = append(addrs, a)
	}
	sortAddresses(addrs)
	return addrs
}

// Len returns the number of entries.
func (t *SymbolTable) Len() int {
	return len(t.byAddr)
}

// Symbols is the run-wide accumulation of every context's discoveries,
// split by how the address was reached: called (or designated entry),
// jumped to, or accessed as data. An address may appear in more than one
// table.
type Symbols struct {
	Functions  *SymbolTable
	Labels     *SymbolTable
	References *SymbolTable
}

// NewSymbols returns empty symbol tables.
func NewSymbols() *Symbols {
	return &Symbols{
		Functions:  newSymbolTable(),
		Labels:     newSymbolTable(),
		References: newSymbolTable(),
	}
}

func (s *Symbols) merge(ctx *Context) {
	for a, n := range ctx.functions {
		s.Functions.Add(a, n)
	}
	for a, n := range ctx.labels {
		s.Labels.Add(a, n)
	}
	for a, n := range ctx.references {
		s.References.Add(a, n)
	}
}

func sortAddresses(addrs []Address) {
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
}
