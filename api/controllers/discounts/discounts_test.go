package discounts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldiscounts "github.com/angelmondragon/fieldpos-backend/internal/discounts"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
)

type memoryCatalog struct {
	presets []internaldiscounts.Preset
	next    int
}

func (m *memoryCatalog) List(context.Context) ([]internaldiscounts.Preset, error) {
	return append([]internaldiscounts.Preset{}, m.presets...), nil
}

func (m *memoryCatalog) Create(_ context.Context, p internaldiscounts.Preset) (internaldiscounts.Preset, error) {
	if p.IsPercentage && p.Amount.GreaterThan(decimal.NewFromInt(100)) {
		return internaldiscounts.Preset{}, pkgerrors.New(pkgerrors.CodeValidation, "percentage preset must not exceed 100")
	}
	m.next++
	p.ID = fmt.Sprintf("p-%d", m.next)
	m.presets = append(m.presets, p)
	return p, nil
}

func (m *memoryCatalog) Update(_ context.Context, p internaldiscounts.Preset) (internaldiscounts.Preset, error) {
	for i := range m.presets {
		if m.presets[i].ID == p.ID {
			m.presets[i] = p
			return p, nil
		}
	}
	return internaldiscounts.Preset{}, pkgerrors.New(pkgerrors.CodeNotFound, "discount preset not found")
}

func (m *memoryCatalog) Delete(_ context.Context, id string) error {
	for i := range m.presets {
		if m.presets[i].ID == id {
			m.presets = append(m.presets[:i], m.presets[i+1:]...)
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "discount preset not found")
}

func call(handler http.HandlerFunc, method, presetID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if presetID != "" {
		rc := chi.NewRouteContext()
		rc.URLParams.Add("presetId", presetID)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestPresetLifecycle(t *testing.T) {
	catalog := &memoryCatalog{}
	logg := logger.Nop()

	w := call(Create(catalog, logg), http.MethodPost, "", `{"name": " Staff ", "amount": 10, "is_percentage": true}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data internaldiscounts.Preset `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "p-1", created.Data.ID)
	assert.Equal(t, "Staff", created.Data.Name)

	w = call(Update(catalog, logg), http.MethodPut, "p-1", `{"name": "Staff", "amount": 15, "is_percentage": true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(List(catalog, logg), http.MethodGet, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Data []internaldiscounts.Preset `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.True(t, listed.Data[0].Amount.Equal(decimal.NewFromInt(15)))

	w = call(Delete(catalog, logg), http.MethodDelete, "p-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, catalog.presets)
}

func TestPresetErrors(t *testing.T) {
	catalog := &memoryCatalog{}
	logg := logger.Nop()

	assert.Equal(t, http.StatusBadRequest, call(Create(catalog, logg), http.MethodPost, "", `{"amount": 5}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(Create(catalog, logg), http.MethodPost, "", `{"name": "Big", "amount": 150, "is_percentage": true}`).Code)
	assert.Equal(t, http.StatusNotFound, call(Update(catalog, logg), http.MethodPut, "missing", `{"name": "x", "amount": 1}`).Code)
	assert.Equal(t, http.StatusNotFound, call(Delete(catalog, logg), http.MethodDelete, "missing", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(Delete(catalog, logg), http.MethodDelete, "", "").Code)
	assert.Equal(t, http.StatusInternalServerError, call(List(nil, logg), http.MethodGet, "", "").Code)
}
