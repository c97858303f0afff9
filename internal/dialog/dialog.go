// Package dialog models modal dialogs as single-result handles.
//
// A Service holds at most one open dialog. The view layer renders the open
// dialog and resolves it; flows that opened it subscribe to its result. Every
// handle delivers exactly one outcome: a value, or an error.
package dialog

import (
	"errors"

	"github.com/smileynet/projtree/internal/project"
)

var (
	// ErrSuperseded is delivered to a dialog replaced by a newer one.
	ErrSuperseded = errors.New("dialog: superseded by a newer dialog")
	// ErrClosed is delivered to a dialog closed without a result.
	ErrClosed = errors.New("dialog: closed")
)

// ConfirmOptions configures a confirmation dialog.
type ConfirmOptions struct {
	Title       string
	Message     string
	CancelText  string
	ConfirmText string
	List        []project.Identifier
	Action      string
}

// CreateOptions configures a project creation dialog.
type CreateOptions struct {
	ParentID string
}

// CreateResult is the outcome of a creation dialog. An empty ID means the
// dialog was dismissed without creating anything.
type CreateResult struct {
	ID string
}

// Confirm is the confirmation dialog service.
type Confirm = Service[ConfirmOptions, bool]

// Create is the creation dialog service.
type Create = Service[CreateOptions, CreateResult]

// NewConfirm returns a confirmation dialog service.
func NewConfirm() *Confirm {
	return &Confirm{}
}

// NewCreate returns a creation dialog service.
func NewCreate() *Create {
	return &Create{}
}

// Handle is one opened dialog.
type Handle[O, R any] struct {
	opts    O
	seq     uint64
	settled bool
	value   R
	err     error
	subs    []func(R, error)
}

// Options returns the options the dialog was opened with.
func (h *Handle[O, R]) Options() O {
	return h.opts
}

// Seq returns the dialog's sequence number within its service.
func (h *Handle[O, R]) Seq() uint64 {
	return h.seq
}

// Settled reports whether the dialog has produced its outcome.
func (h *Handle[O, R]) Settled() bool {
	return h.settled
}

// Subscribe registers fn for the outcome. If the dialog has already settled,
// fn is called immediately.
func (h *Handle[O, R]) Subscribe(fn func(R, error)) {
	if h.settled {
		fn(h.value, h.err)
		return
	}
	h.subs = append(h.subs, fn)
}

func (h *Handle[O, R]) settle(v R, err error) {
	if h.settled {
		return
	}
	h.settled = true
	h.value, h.err = v, err
	subs := h.subs
	h.subs = nil
	for _, fn := range subs {
		fn(v, err)
	}
}

// Service owns the currently open dialog of one kind. It is not safe for
// concurrent use.
type Service[O, R any] struct {
	current *Handle[O, R]
	seq     uint64
}

// Open shows a new dialog. A dialog still open is settled with ErrSuperseded.
func (s *Service[O, R]) Open(opts O) *Handle[O, R] {
	prev := s.current
	s.seq++
	h := &Handle[O, R]{opts: opts, seq: s.seq}
	s.current = h
	if prev != nil {
		var zero R
		prev.settle(zero, ErrSuperseded)
	}
	return h
}

// Current returns the open dialog, or nil.
func (s *Service[O, R]) Current() *Handle[O, R] {
	return s.current
}

// Resolve settles the open dialog with v and closes it.
func (s *Service[O, R]) Resolve(v R) {
	h := s.take()
	if h != nil {
		h.settle(v, nil)
	}
}

// Fail settles the open dialog with err and closes it.
func (s *Service[O, R]) Fail(err error) {
	h := s.take()
	if h != nil {
		var zero R
		h.settle(zero, err)
	}
}

// CloseAll closes the open dialog. If it had not settled, it receives ErrClosed.
func (s *Service[O, R]) CloseAll() {
	s.Fail(ErrClosed)
}

func (s *Service[O, R]) take() *Handle[O, R] {
	h := s.current
	s.current = nil
	return h
}
