package dis

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrAlreadyRegistered is returned when an opcode is registered twice. It
// signals a programming error in the architecture plugin and should abort
// setup.
var ErrAlreadyRegistered = errors.New("opcode already registered")

// DecodeFunc decodes one instruction. The context has already consumed the
// opcode bytes; the function pops any operand bytes and records control
// flow on the context.
type DecodeFunc func(*Context) (Instruction, error)

// Action is the table entry for an opcode: either a fixed rendering for an
// instruction with no operands, a decode function, or the More sentinel
// marking a proper prefix of longer opcodes.
type Action struct {
	text string
	fn   DecodeFunc
	more bool
}

// Text registers a fixed one-byte instruction rendering.
func Text(s string) Action {
	return Action{text: s}
}

// Decode registers a decode function.
func Decode(fn DecodeFunc) Action {
	return Action{fn: fn}
}

// More marks an opcode prefix that needs further bytes before it can match.
var More = Action{more: true}

// Match is the result of a table lookup.
type Match int

const (
	// Unknown means no entry matches the prefix at any length.
	Unknown Match = iota
	// NeedsMoreBytes means the prefix is registered but incomplete.
	NeedsMoreBytes
	// Found means the prefix matched a decode action.
	Found
)

// Table maps variable-length opcode byte sequences to decode actions.
// Opcodes may be registered as raw bytes, hex strings or integers; all
// three spellings normalise into the same key space so the same opcode
// cannot be registered twice under different forms.
type Table struct {
	actions map[string]Action
}

// NewTable returns an empty instruction table.
func NewTable() *Table {
	return &Table{actions: make(map[string]Action)}
}

// normaliseInt encodes an integer opcode as its minimal big-endian byte
// sequence. Zero encodes as a single zero byte.
func normaliseInt(opcode uint64) []byte {
	if opcode == 0 {
		return []byte{0}
	}
	var b []byte
	for v := opcode; v > 0; v >>= 8 {
		b = append([]byte{byte(v)}, b...)
	}
	return b
}

// normaliseHex decodes a hex string and strips leading zero bytes. An
// all-zero string normalises to a single zero byte.
func normaliseHex(opcode string) ([]byte, error) {
	if len(opcode)%2 == 1 {
		opcode = "0" + opcode
	}
	b, err := hex.DecodeString(opcode)
	if err != nil {
		return nil, fmt.Errorf("bad opcode string %q: %w", opcode, err)
	}
	for len(b) > 1 && b[0] == 0 {
		b = b[1:]
	}
	if len(b) == 0 {
		b = []byte{0}
	}
	return b, nil
}

func (t *Table) add(key []byte, action Action) error {
	k := string(key)
	if _, ok := t.actions[k]; ok {
		return fmt.Errorf("%w: %x", ErrAlreadyRegistered, key)
	}
	t.actions[k] = action
	return nil
}

// Register adds an action for an integer opcode.
func (t *Table) Register(opcode uint64, action Action) error {
	return t.add(normaliseInt(opcode), action)
}

// RegisterBytes adds an action for a raw opcode byte sequence.
func (t *Table) RegisterBytes(opcode []byte, action Action) error {
	if len(opcode) == 0 {
		return errors.New("empty opcode")
	}
	return t.add(opcode, action)
}

// RegisterHex adds an action for an opcode given as a hex string without
// the 0x prefix.
func (t *Table) RegisterHex(opcode string, action Action) error {
	key, err := normaliseHex(opcode)
	if err != nil {
		return err
	}
	return t.add(key, action)
}

// RegisterRange adds the same action for every opcode in [start, end)
// stepped by step. Range actions usually inspect Context.Opcode to recover
// which member of the range was decoded.
func (t *Table) RegisterRange(start, end uint64, step uint64, action Action) error {
	if step == 0 {
		return errors.New("zero step")
	}
	for op := start; op < end; op += step {
		if err := t.Register(op, action); err != nil {
			return err
		}
	}
	return nil
}

// Lookup matches an accumulated opcode prefix against the table. It
// distinguishes a registered-but-incomplete prefix (NeedsMoreBytes) from a
// prefix with no entry at all (Unknown); the returned action is only
// meaningful for Found.
func (t *Table) Lookup(prefix []byte) (Action, Match) {
	action, ok := t.actions[string(prefix)]
	switch {
	case !ok:
		return Action{}, Unknown
	case action.more:
		return Action{}, NeedsMoreBytes
	default:
		return action, Found
	}
}

// Len returns the number of registered opcodes, prefix sentinels included.
func (t *Table) Len() int {
	return len(t.actions)
}
