package discounts

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fieldpos-backend/api/responses"
	"github.com/angelmondragon/fieldpos-backend/api/validators"
	internaldiscounts "github.com/angelmondragon/fieldpos-backend/internal/discounts"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
)

const maxPresetNameLength = 64

// Catalog is the discount preset catalog.
type Catalog interface {
	List(ctx context.Context) ([]internaldiscounts.Preset, error)
	Create(ctx context.Context, preset internaldiscounts.Preset) (internaldiscounts.Preset, error)
	Update(ctx context.Context, preset internaldiscounts.Preset) (internaldiscounts.Preset, error)
	Delete(ctx context.Context, id string) error
}

type presetRequest struct {
	Name         string          `json:"name" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	IsPercentage bool            `json:"is_percentage"`
}

func (p presetRequest) toPreset(id string) internaldiscounts.Preset {
	return internaldiscounts.Preset{
		ID:           id,
		Name:         validators.SanitizeString(p.Name, maxPresetNameLength),
		Amount:       p.Amount,
		IsPercentage: p.IsPercentage,
	}
}

func List(catalog Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount catalog unavailable"))
			return
		}
		presets, err := catalog.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, presets)
	}
}

func Create(catalog Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount catalog unavailable"))
			return
		}
		var payload presetRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		preset, err := catalog.Create(r.Context(), payload.toPreset(""))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, preset)
	}
}

func Update(catalog Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount catalog unavailable"))
			return
		}
		id, err := validators.ParsePathString(r, "presetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload presetRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		preset, err := catalog.Update(r.Context(), payload.toPreset(id))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preset)
	}
}

func Delete(catalog Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount catalog unavailable"))
			return
		}
		id, err := validators.ParsePathString(r, "presetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := catalog.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
