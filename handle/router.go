package handle

import (
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

var (
	// ErrNoHandler indicates that no handler is registered for a handle.
	ErrNoHandler = errors.New("no handler registered for handle")

	// ErrDuplicateHandler indicates that a handle already has a handler.
	ErrDuplicateHandler = errors.New("handler already registered for handle")
)

// HandlerFunc handles a payload routed to a handle. arg is supplied by the dispatcher.
type HandlerFunc[T any] func(h Handle, arg T, payload []byte) error

// Router maps handles to handlers. It is safe for concurrent use.
type Router[T any] struct {
	handlers *xsync.MapOf[Handle, HandlerFunc[T]]
}

// NewRouter creates an empty router.
func NewRouter[T any]() *Router[T] {
	return &Router[T]{handlers: xsync.NewMapOf[Handle, HandlerFunc[T]]()}
}

// Register binds fn to h. Registering a handle twice returns ErrDuplicateHandler.
func (r *Router[T]) Register(h Handle, fn HandlerFunc[T]) error {
	if fn == nil {
		return fmt.Errorf("nil handler for handle %s", h)
	}
	if _, loaded := r.handlers.LoadOrStore(h, fn); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, h)
	}

	return nil
}

// Unregister removes the handler bound to h and reports whether one existed.
func (r *Router[T]) Unregister(h Handle) bool {
	_, ok := r.handlers.LoadAndDelete(h)
	return ok
}

// Dispatch calls the handler registered for h.
func (r *Router[T]) Dispatch(h Handle, arg T, payload []byte) error {
	fn, ok := r.handlers.Load(h)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, h)
	}

	return fn(h, arg, payload)
}

// Len returns the number of registered handlers.
func (r *Router[T]) Len() int {
	return r.handlers.Size()
}
