// Package bgenerrors defines the error vocabulary shared by every BGEN
// decoding component: a typed error carrying the originating file
// path and a Kind, plus an Once accumulator for batch operations.
package bgenerrors

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// Other is the zero value, used when no more specific Kind applies.
	Other Kind = iota
	// Io covers underlying read/seek failures.
	Io
	// Malformed covers header/flag/variant-block contents that violate
	// the BGEN spec: bad magic, bad flag codes, a bit width out of
	// range, a decompressed length that disagrees with its declared size.
	Malformed
	// HeaderMismatch covers a sample count declared in the sample block,
	// a layout-1 variant prefix or a layout-2 probability block that
	// disagrees with the file-level sample count. A .bgi whose counts
	// disagree with the BGEN header is reported as IndexMismatch.
	HeaderMismatch
	// Unsupported covers ploidy != 2, allele count != 2, phased data,
	// layout 1 passed to CreateBGI, or .sample parsing.
	Unsupported
	// IndexMissing covers an operation that requires the .bgi
	// companion index when none is open.
	IndexMissing
	// IndexMismatch covers a .bgi that exists but does not describe
	// the open BGEN file.
	IndexMismatch
	// SelectorType covers a Selector that is neither a contiguous
	// range nor a list of integers.
	SelectorType
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "I/O error"
	case Malformed:
		return "malformed BGEN data"
	case HeaderMismatch:
		return "header mismatch"
	case Unsupported:
		return "unsupported"
	case IndexMissing:
		return "index missing"
	case IndexMismatch:
		return "index mismatch"
	case SelectorType:
		return "invalid selector"
	default:
		return "error"
	}
}

// Error is the error type returned across every BGEN package boundary.
type Error struct {
	Path string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Kind)
}

// Unwrap lets callers errors.As/errors.Is against the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error for path/kind, optionally wrapping a cause error
// and/or formatting a message from a variadic mix of strings and errors.
func E(path string, kind Kind, args ...interface{}) error {
	e := &Error{Path: path, Kind: kind}
	var msgs []string
	for _, a := range args {
		switch v := a.(type) {
		case error:
			e.Err = v
		case string:
			msgs = append(msgs, v)
		default:
			msgs = append(msgs, fmt.Sprint(v))
		}
	}
	if len(msgs) > 0 {
		msg := msgs[0]
		for _, m := range msgs[1:] {
			msg += ": " + m
		}
		if e.Err != nil {
			e.Err = errors.Wrap(e.Err, msg)
		} else {
			e.Err = errors.New(msg)
		}
	}
	return e
}

// Once accumulates the first error reported to it, for bulk operations
// that must either fully succeed or fully fail, since partial bulk
// results are never returned.
type Once struct {
	mu  sync.Mutex
	err error
}

// Set records err as the accumulated error if none has been recorded yet.
func (o *Once) Set(err error) {
	if err == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err == nil {
		o.err = err
	}
}

// Err returns the first error recorded, or nil.
func (o *Once) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}
