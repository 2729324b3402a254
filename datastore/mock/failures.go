/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"fmt"
	"net/http"
	"sync"

	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// StatusError returns a transport error carrying an HTTP status code, the
// same shape the SDK produces for throttling and 5xx responses.
func StatusError(code int) error {
	return &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: code}},
		Err:      fmt.Errorf("mock: %s", http.StatusText(code)),
	}
}

// faults tracks per-operation call counts and injected errors.
type faults struct {
	mu     sync.Mutex
	calls  map[string]int
	queued map[string][]error
	always map[string]error
}

func newFaults() *faults {
	return &faults{
		calls:  make(map[string]int),
		queued: make(map[string][]error),
		always: make(map[string]error),
	}
}

// enter records a call to op and returns the injected error, if any.
func (f *faults) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if q := f.queued[op]; len(q) > 0 {
		f.queued[op] = q[1:]
		return q[0]
	}
	return f.always[op]
}

func (f *faults) failNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued[op] = append(f.queued[op], errs...)
}

func (f *faults) failAlways(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.always, op)
		return
	}
	f.always[op] = err
}

func (f *faults) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *faults) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *faults) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = make(map[string]int)
	f.queued = make(map[string][]error)
	f.always = make(map[string]error)
}
