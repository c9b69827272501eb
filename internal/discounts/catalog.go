package discounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fieldpos-backend/pkg/erp"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
)

var (
	remoteFields   = []string{"id", "name", "amount", "is_percentage"}
	hundredPercent = decimal.NewFromInt(100)
)

// Preset is a named discount offered on the payment screen.
type Preset struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
	IsPercentage bool            `json:"is_percentage"`
	RemoteID     int64           `json:"remote_id,omitempty"`
}

func (p Preset) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "preset name is required")
	}
	if p.Amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "preset amount must not be negative")
	}
	if p.IsPercentage && p.Amount.GreaterThan(hundredPercent) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage preset must not exceed 100")
	}
	return nil
}

func (p Preset) remoteVals() map[string]any {
	return map[string]any{
		"name":          p.Name,
		"amount":        p.Amount.InexactFloat64(),
		"is_percentage": p.IsPercentage,
	}
}

type remotePreset struct {
	ID           int64           `json:"id"`
	Name         erp.Text        `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
	IsPercentage bool            `json:"is_percentage"`
}

type gateway interface {
	Create(ctx context.Context, model string, vals map[string]any) (int64, error)
	Update(ctx context.Context, model string, ids []int64, vals map[string]any) error
	Delete(ctx context.Context, model string, ids []int64) error
	Query(ctx context.Context, model string, domain erp.Domain, opts erp.QueryOptions, dest any) error
}

// CatalogParams groups the catalog dependencies.
type CatalogParams struct {
	Store   Store
	Gateway gateway
	Model   string
	Logger  *logger.Logger
}

// Catalog manages discount presets. The local store is the source of truth; the remote
// model only seeds an empty cache and receives best-effort mirrors of local writes.
type Catalog struct {
	mu    sync.Mutex
	store Store
	gw    gateway
	model string
	logg  *logger.Logger
	newID func() string
}

func NewCatalog(params CatalogParams) (*Catalog, error) {
	if params.Store == nil {
		return nil, errors.New("preset store required")
	}
	if params.Gateway == nil {
		return nil, errors.New("erp gateway required")
	}
	if strings.TrimSpace(params.Model) == "" {
		return nil, errors.New("remote discount model required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Catalog{
		store: params.Store,
		gw:    params.Gateway,
		model: params.Model,
		logg:  params.Logger,
		newID: uuid.NewString,
	}, nil
}

// List returns the cached presets, seeding the cache from the remote catalog when it is
// empty. A missing or failing remote catalog yields an empty list.
func (c *Catalog) List(ctx context.Context) ([]Preset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	local, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(local) > 0 {
		return local, nil
	}

	remote, err := c.fetchRemote(ctx)
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", erp.RawMessage(err)), "remote discount catalog unavailable")
		return []Preset{}, nil
	}
	if len(remote) == 0 {
		return []Preset{}, nil
	}
	if err := c.store.Save(ctx, remote); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "discount cache not seeded")
	}
	return remote, nil
}

func (c *Catalog) Create(ctx context.Context, preset Preset) (Preset, error) {
	if err := preset.validate(); err != nil {
		return Preset{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	presets, err := c.load(ctx)
	if err != nil {
		return Preset{}, err
	}
	preset.ID = c.newID()
	preset.RemoteID = 0
	presets = append(presets, preset)
	if err := c.save(ctx, presets); err != nil {
		return Preset{}, err
	}

	if remoteID := c.mirrorCreate(ctx, preset); remoteID > 0 {
		preset.RemoteID = remoteID
		presets[len(presets)-1] = preset
		if err := c.store.Save(ctx, presets); err != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "discount remote id not cached")
		}
	}
	return preset, nil
}

func (c *Catalog) Update(ctx context.Context, preset Preset) (Preset, error) {
	if err := preset.validate(); err != nil {
		return Preset{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	presets, err := c.load(ctx)
	if err != nil {
		return Preset{}, err
	}
	idx := indexOf(presets, preset.ID)
	if idx < 0 {
		return Preset{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("discount preset %s not found", preset.ID))
	}
	preset.RemoteID = presets[idx].RemoteID
	presets[idx] = preset
	if err := c.save(ctx, presets); err != nil {
		return Preset{}, err
	}

	if preset.RemoteID > 0 {
		if err := c.gw.Update(ctx, c.model, []int64{preset.RemoteID}, preset.remoteVals()); err != nil {
			c.mirrorFailed(ctx, "update", err)
		}
		return preset, nil
	}
	if remoteID := c.mirrorCreate(ctx, preset); remoteID > 0 {
		preset.RemoteID = remoteID
		presets[idx] = preset
		if err := c.store.Save(ctx, presets); err != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "discount remote id not cached")
		}
	}
	return preset, nil
}

func (c *Catalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	presets, err := c.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(presets, id)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("discount preset %s not found", id))
	}
	removed := presets[idx]
	presets = append(presets[:idx], presets[idx+1:]...)
	if err := c.save(ctx, presets); err != nil {
		return err
	}

	if removed.RemoteID > 0 {
		if err := c.gw.Delete(ctx, c.model, []int64{removed.RemoteID}); err != nil {
			c.mirrorFailed(ctx, "delete", err)
		}
	}
	return nil
}

func (c *Catalog) load(ctx context.Context) ([]Preset, error) {
	presets, err := c.store.Load(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discount cache unavailable")
	}
	return presets, nil
}

func (c *Catalog) save(ctx context.Context, presets []Preset) error {
	if err := c.store.Save(ctx, presets); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discount cache unavailable")
	}
	return nil
}

// remoteAvailable probes ir.model; an empty result means the ERP has no preset model.
func (c *Catalog) remoteAvailable(ctx context.Context) (bool, error) {
	var found []struct {
		ID int64 `json:"id"`
	}
	if err := c.gw.Query(ctx, erp.ModelIRModel, erp.Where("model", "=", c.model), erp.QueryOptions{
		Fields: []string{"id"},
		Limit:  1,
	}, &found); err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

func (c *Catalog) fetchRemote(ctx context.Context) ([]Preset, error) {
	ok, err := c.remoteAvailable(ctx)
	if err != nil || !ok {
		return nil, err
	}
	var records []remotePreset
	if err := c.gw.Query(ctx, c.model, nil, erp.QueryOptions{Fields: remoteFields, Order: "id asc"}, &records); err != nil {
		return nil, err
	}
	presets := make([]Preset, 0, len(records))
	for _, r := range records {
		presets = append(presets, Preset{
			ID:           c.newID(),
			Name:         r.Name.String(),
			Amount:       r.Amount,
			IsPercentage: r.IsPercentage,
			RemoteID:     r.ID,
		})
	}
	return presets, nil
}

// mirrorCreate returns the remote id, or 0 when nothing was mirrored.
func (c *Catalog) mirrorCreate(ctx context.Context, preset Preset) int64 {
	ok, err := c.remoteAvailable(ctx)
	if err != nil {
		c.mirrorFailed(ctx, "probe", err)
		return 0
	}
	if !ok {
		return 0
	}
	id, err := c.gw.Create(ctx, c.model, preset.remoteVals())
	if err != nil {
		c.mirrorFailed(ctx, "create", err)
		return 0
	}
	return id
}

func (c *Catalog) mirrorFailed(ctx context.Context, op string, err error) {
	c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
		"operation": op,
		"model":     c.model,
		"error":     erp.RawMessage(err),
	}), "discount mirror failed")
}

func indexOf(presets []Preset, id string) int {
	for i, p := range presets {
		if p.ID == id {
			return i
		}
	}
	return -1
}
