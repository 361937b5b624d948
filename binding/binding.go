// Package binding assigns device values to struct fields through dispatch tables built once
// at registration time.
//
// Each bound field gets a handle; reading a device yields one payload per handle, and Apply
// routes the payload to the typed setter registered for that field. No type inspection
// happens at read time.
//
//	type Line struct {
//	    Running bool
//	    Speed   uint16
//	}
//
//	tbl := binding.NewTable[Line](1)
//	_, _ = tbl.Bind("Running", "M10", binding.Bool(func(l *Line) *bool { return &l.Running }))
//	_, _ = tbl.Bind("Speed", "R100", binding.Uint16(func(l *Line) *uint16 { return &l.Speed }, binary.LittleEndian))
package binding

import (
	"errors"
	"fmt"
	"sync"

	"github.com/arloliu/go-plc/handle"
	"github.com/arloliu/go-plc/plc"
)

// Major is the handle major part of binding tables.
const Major uint8 = 0xB1

// Setter decodes a device payload into one field of T.
type Setter[T any] struct {
	words  int
	asBool bool
	fn     func(dst *T, raw []byte) error
}

// Words returns the number of 16-bit words the setter consumes, zero for booleans.
func (s Setter[T]) Words() int { return s.words }

// IsBool reports whether the setter consumes a discrete point.
func (s Setter[T]) IsBool() bool { return s.asBool }

// Entry describes one bound field.
type Entry struct {
	Handle  handle.Handle
	Field   string
	Address string
	Words   int // 16-bit words to read, zero for a discrete point
	AsBool  bool
}

// Table maps field handles to setters. It is safe for concurrent use.
type Table[T any] struct {
	mu      sync.RWMutex
	entries []Entry
	fields  map[string]struct{}
	router  *handle.Router[*T]
	ids     *handle.Generator
}

// NewTable creates an empty table; id becomes the minor part of its handles.
func NewTable[T any](id uint8) *Table[T] {
	return &Table[T]{
		fields: make(map[string]struct{}),
		router: handle.NewRouter[*T](),
		ids:    handle.NewGenerator(Major, id),
	}
}

// Bind registers setter for field, read from address, and returns the field handle.
func (t *Table[T]) Bind(field string, address string, setter Setter[T]) (handle.Handle, error) {
	if field == "" || address == "" {
		return 0, fmt.Errorf("%w: field and address are required", plc.ErrInvalidParameter)
	}
	if setter.fn == nil {
		return 0, fmt.Errorf("%w: empty setter for %s", plc.ErrInvalidParameter, field)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.fields[field]; ok {
		return 0, fmt.Errorf("%w: field %s already bound", plc.ErrInvalidParameter, field)
	}

	h := t.ids.Next()
	err := t.router.Register(h, func(_ handle.Handle, dst *T, raw []byte) error {
		return setter.fn(dst, raw)
	})
	if err != nil {
		return 0, err
	}

	t.fields[field] = struct{}{}
	t.entries = append(t.entries, Entry{
		Handle:  h,
		Field:   field,
		Address: address,
		Words:   setter.words,
		AsBool:  setter.asBool,
	})

	return h, nil
}

// Entries returns the bound fields in registration order.
func (t *Table[T]) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return append([]Entry(nil), t.entries...)
}

// Len returns the number of bound fields.
func (t *Table[T]) Len() int {
	return t.router.Len()
}

// Apply decodes raw into the field bound to h.
func (t *Table[T]) Apply(h handle.Handle, dst *T, raw []byte) error {
	if dst == nil {
		return fmt.Errorf("%w: nil destination", plc.ErrInvalidParameter)
	}

	err := t.router.Dispatch(h, dst, raw)
	if errors.Is(err, handle.ErrNoHandler) {
		return fmt.Errorf("%w: %w", plc.ErrInvalidParameter, err)
	}

	return err
}
