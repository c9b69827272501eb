package erp

import (
	"context"
	"encoding/json"
	"fmt"

	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
)

// Gateway layers typed record operations over an Invoker.
type Gateway struct {
	inv Invoker
}

// NewGateway wraps inv.
func NewGateway(inv Invoker) *Gateway {
	return &Gateway{inv: inv}
}

// Invoke passes call straight through.
func (g *Gateway) Invoke(ctx context.Context, call Call) (json.RawMessage, error) {
	if g == nil || g.inv == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "erp gateway not configured")
	}
	return g.inv.Invoke(ctx, call)
}

// Create inserts one record and returns its ERP-assigned id.
func (g *Gateway) Create(ctx context.Context, model string, vals map[string]any) (int64, error) {
	raw, err := g.Invoke(ctx, Call{Model: model, Operation: OpCreate, Args: []any{vals}})
	if err != nil {
		return 0, err
	}
	id, err := decodeID(raw)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeRemote, err, fmt.Sprintf("erp %s.create returned no id", model))
	}
	return id, nil
}

// Update writes vals onto ids.
func (g *Gateway) Update(ctx context.Context, model string, ids []int64, vals map[string]any) error {
	if len(ids) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "update requires at least one id")
	}
	_, err := g.Invoke(ctx, Call{Model: model, Operation: OpUpdate, Args: []any{ids, vals}})
	return err
}

// Delete unlinks ids.
func (g *Gateway) Delete(ctx context.Context, model string, ids []int64) error {
	if len(ids) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "delete requires at least one id")
	}
	_, err := g.Invoke(ctx, Call{Model: model, Operation: OpDelete, Args: []any{ids}})
	return err
}

// Query runs search_read and decodes the record list into dest.
func (g *Gateway) Query(ctx context.Context, model string, domain Domain, opts QueryOptions, dest any) error {
	if domain == nil {
		domain = Domain{}
	}
	raw, err := g.Invoke(ctx, Call{
		Model:     model,
		Operation: OpQuery,
		Args:      []any{domain},
		Kwargs:    opts.kwargs(),
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemote, err, fmt.Sprintf("decode %s records", model))
	}
	return nil
}

// Action calls a named remote method on ids.
func (g *Gateway) Action(ctx context.Context, model, action string, ids []int64, kwargs map[string]any) (json.RawMessage, error) {
	return g.Invoke(ctx, Call{
		Model:     model,
		Operation: OpAction,
		Action:    action,
		Args:      []any{ids},
		Kwargs:    kwargs,
	})
}
