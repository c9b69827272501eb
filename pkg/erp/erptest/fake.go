// Package erptest provides a scripted in-memory Invoker for tests.
package erptest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/fieldpos-backend/pkg/erp"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
)

// Handler answers one call. The returned value is JSON encoded as the call result.
type Handler func(call erp.Call) (any, error)

// Fake records every call and dispatches it to the handler registered for model and method.
type Fake struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []erp.Call
}

// New returns an empty fake. Calls without a handler fail as remote errors.
func New() *Fake {
	return &Fake{handlers: map[string]Handler{}}
}

// Gateway wraps the fake in the typed helpers.
func (f *Fake) Gateway() *erp.Gateway {
	return erp.NewGateway(f)
}

// On registers h for a CRUD operation on model.
func (f *Fake) On(model string, op erp.Operation, h Handler) *Fake {
	method, _ := erp.Call{Model: model, Operation: op}.RemoteMethod()
	return f.register(model, method, h)
}

// OnAction registers h for a named action on model.
func (f *Fake) OnAction(model, action string, h Handler) *Fake {
	return f.register(model, action, h)
}

func (f *Fake) register(model, method string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[model+"|"+method] = h
	return f
}

// Invoke implements erp.Invoker.
func (f *Fake) Invoke(_ context.Context, call erp.Call) (json.RawMessage, error) {
	method, err := call.RemoteMethod()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid erp call")
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	h, ok := f.handlers[call.Model+"|"+method]
	f.mu.Unlock()

	if !ok {
		remote := erp.NewInBandError(200, "Odoo Server Error", fmt.Sprintf("no handler for %s.%s", call.Model, method))
		remote.Model, remote.Method = call.Model, method
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemote, remote, "erp call failed")
	}
	result, err := h(call)
	if err != nil {
		if remote, isRemote := erp.AsRemote(err); isRemote {
			remote.Model, remote.Method = call.Model, method
			return nil, pkgerrors.Wrap(pkgerrors.CodeRemote, remote, fmt.Sprintf("erp %s.%s failed", call.Model, method))
		}
		return nil, err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode fake result: %w", err)
	}
	return raw, nil
}

// Calls returns a copy of the recorded calls in order.
func (f *Fake) Calls() []erp.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]erp.Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Count reports how many calls hit model with op.
func (f *Fake) Count(model string, op erp.Operation) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if call.Model == model && call.Operation == op {
			n++
		}
	}
	return n
}

// CountAction reports how many times action was invoked on model.
func (f *Fake) CountAction(model, action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if call.Model == model && call.Operation == erp.OpAction && call.Action == action {
			n++
		}
	}
	return n
}

// Total reports the number of recorded calls.
func (f *Fake) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Reply always answers v.
func Reply(v any) Handler {
	return func(erp.Call) (any, error) { return v, nil }
}

// Fail always answers an in-band ERP error carrying message.
func Fail(message string) Handler {
	return func(erp.Call) (any, error) {
		return nil, erp.NewInBandError(200, "Odoo Server Error", message)
	}
}

// Vals returns the value map sent with a create or write call.
func Vals(call erp.Call) map[string]any {
	idx := 0
	if call.Operation == erp.OpUpdate {
		idx = 1
	}
	if len(call.Args) <= idx {
		return nil
	}
	vals, _ := call.Args[idx].(map[string]any)
	return vals
}

// IDs returns the record ids targeted by a write, unlink or action call.
func IDs(call erp.Call) []int64 {
	if len(call.Args) == 0 {
		return nil
	}
	ids, _ := call.Args[0].([]int64)
	return ids
}
