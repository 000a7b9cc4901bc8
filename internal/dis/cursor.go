// Package dis implements an architecture-agnostic, control-flow driven
// disassembler. The instruction semantics of a concrete target are supplied
// by an architecture plugin that registers decode actions into a Table; the
// engine only knows how to accumulate opcodes, follow discovered jumps and
// calls, and render the result as a listing.
package dis

import (
	"errors"
	"fmt"
)

// Address is an offset into the ROM image. It is the key for every map the
// engine produces. Addresses discovered as jump or reference targets may lie
// outside the image; only addresses actually dereferenced by a Cursor are
// bounds checked.
type Address uint32

// ErrOutOfBounds is returned by the pop operations when the read head has
// reached the end of the image.
var ErrOutOfBounds = errors.New("read past end of image")

// Cursor is the read head used to decode one instruction. It starts at the
// origin address and only ever moves forward; every byte popped is recorded
// so the finished instruction knows its own encoding.
type Cursor struct {
	image    []byte
	origin   Address
	position Address
	consumed []byte
}

// NewCursor returns a cursor over image positioned at origin.
func NewCursor(image []byte, origin Address) *Cursor {
	return &Cursor{
		image:    image,
		origin:   origin,
		position: origin,
	}
}

// Origin returns the address at which decoding of the current instruction
// began.
func (c *Cursor) Origin() Address {
	return c.origin
}

// Position returns the address of the next byte to be popped.
func (c *Cursor) Position() Address {
	return c.position
}

// Consumed returns the bytes popped since the origin.
func (c *Cursor) Consumed() []byte {
	return c.consumed
}

// PopByte pops the next byte and advances the cursor.
func (c *Cursor) PopByte() (byte, error) {
	if int(c.position) >= len(c.image) {
		return 0, fmt.Errorf("%w: %#04x of %#04x", ErrOutOfBounds, c.position, len(c.image))
	}
	b := c.image[c.position]
	c.consumed = append(c.consumed, b)
	c.position++
	return b, nil
}

// PopSignedByte pops one byte and reinterprets it as a signed value in the
// range [-128, 127].
func (c *Cursor) PopSignedByte() (int, error) {
	b, err := c.PopByte()
	if err != nil {
		return 0, err
	}
	v := int(b)
	if v > 127 {
		v -= 256
	}
	return v, nil
}

// PopWordLE pops two bytes and assembles them least-significant first.
func (c *Cursor) PopWordLE() (uint16, error) {
	lo, err := c.PopByte()
	if err != nil {
		return 0, err
	}
	hi, err := c.PopByte()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// PopWordBE pops two bytes and assembles them most-significant first.
func (c *Cursor) PopWordBE() (uint16, error) {
	hi, err := c.PopByte()
	if err != nil {
		return 0, err
	}
	lo, err := c.PopByte()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}
