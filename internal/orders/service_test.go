package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fieldpos-backend/internal/cart"
	"github.com/angelmondragon/fieldpos-backend/pkg/erp"
	"github.com/angelmondragon/fieldpos-backend/pkg/erp/erptest"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
)

// memoryERP keeps created orders and lines so reads return what was written.
type memoryERP struct {
	fake   *erptest.Fake
	nextID int64
	orders map[int64]map[string]any
	lines  map[int64]map[string]any
}

func newMemoryERP() *memoryERP {
	m := &memoryERP{
		fake:   erptest.New(),
		nextID: 100,
		orders: map[int64]map[string]any{},
		lines:  map[int64]map[string]any{},
	}
	m.fake.On(erp.ModelOrder, erp.OpCreate, func(call erp.Call) (any, error) {
		vals := erptest.Vals(call)
		m.nextID++
		orderID := m.nextID
		record := map[string]any{"id": orderID}
		for k, v := range vals {
			record[k] = v
		}
		lineIDs := []int64{}
		for _, cmd := range vals["lines"].([]any) {
			lineVals := cmd.([]any)[2].(map[string]any)
			m.nextID++
			line := map[string]any{"id": m.nextID, "order_id": []any{orderID, "Order"}}
			for k, v := range lineVals {
				if k == "tax_ids" {
					continue
				}
				line[k] = v
			}
			m.lines[m.nextID] = line
			lineIDs = append(lineIDs, m.nextID)
		}
		record["lines"] = lineIDs
		m.orders[orderID] = record
		return orderID, nil
	})
	m.fake.On(erp.ModelOrder, erp.OpQuery, func(call erp.Call) (any, error) {
		id := call.Args[0].(erp.Domain)[0].([]any)[2].(int64)
		if rec, ok := m.orders[id]; ok {
			return []any{rec}, nil
		}
		return []any{}, nil
	})
	m.fake.On(erp.ModelOrderLine, erp.OpQuery, func(call erp.Call) (any, error) {
		ids := call.Args[0].(erp.Domain)[0].([]any)[2].([]int64)
		out := []any{}
		for _, id := range ids {
			if rec, ok := m.lines[id]; ok {
				out = append(out, rec)
			}
		}
		return out, nil
	})
	m.fake.On(erp.ModelOrder, erp.OpUpdate, erptest.Reply(true))
	m.fake.On(erp.ModelOrderLine, erp.OpUpdate, func(call erp.Call) (any, error) {
		for _, id := range erptest.IDs(call) {
			for k, v := range erptest.Vals(call) {
				m.lines[id][k] = v
			}
		}
		return true, nil
	})
	m.fake.On(erp.ModelOrderLine, erp.OpDelete, func(call erp.Call) (any, error) {
		for _, id := range erptest.IDs(call) {
			delete(m.lines, id)
			for _, order := range m.orders {
				kept := []int64{}
				for _, lineID := range order["lines"].([]int64) {
					if lineID != id {
						kept = append(kept, lineID)
					}
				}
				order["lines"] = kept
			}
		}
		return true, nil
	})
	return m
}

func newTestService(t *testing.T, fake *erptest.Fake) Service {
	t.Helper()
	svc, err := NewService(fake.Gateway(), logger.Nop())
	require.NoError(t, err)
	return svc
}

func d(v string) *decimal.Decimal {
	out := decimal.RequireFromString(v)
	return &out
}

func TestCreateDraftOrderEmptyCart(t *testing.T) {
	t.Parallel()

	fake := erptest.New()
	_, err := newTestService(t, fake).CreateDraftOrder(context.Background(), DraftOrderInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrEmptyCart))
	assert.Zero(t, fake.Total())
}

func TestCreateDraftOrderTotalIsSumOfQtyTimesPrice(t *testing.T) {
	t.Parallel()

	fake := erptest.New()
	var vals map[string]any
	fake.On(erp.ModelOrder, erp.OpCreate, func(call erp.Call) (any, error) {
		vals = erptest.Vals(call)
		return 7, nil
	})
	partner := int64(42)
	id, err := newTestService(t, fake).CreateDraftOrder(context.Background(), DraftOrderInput{
		PartnerID: &partner,
		Lines: []cart.Line{
			{ProductID: 1, Qty: d("2"), Price: d("5.0"), Discount: decimal.NewFromInt(50)},
			{ProductID: 2, Quantity: d("3"), PriceUnit: d("0.1")},
		},
		Session: cart.Session{SessionID: 3, RegisterID: 4, CompanyID: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, 10.3, vals["amount_total"])
	assert.Equal(t, 0, vals["amount_tax"])
	assert.Equal(t, "draft", vals["state"])
	assert.Equal(t, int64(42), vals["partner_id"])
	assert.Equal(t, int64(3), vals["session_id"])
	assert.Equal(t, int64(4), vals["config_id"])
	assert.Len(t, vals["lines"], 2)
}

func TestCreateDraftOrderHonoursOverrideAndMissingPartner(t *testing.T) {
	t.Parallel()

	fake := erptest.New()
	var vals map[string]any
	fake.On(erp.ModelOrder, erp.OpCreate, func(call erp.Call) (any, error) {
		vals = erptest.Vals(call)
		return 8, nil
	})
	_, err := newTestService(t, fake).CreateDraftOrder(context.Background(), DraftOrderInput{
		Lines:       []cart.Line{{ProductID: 1, Qty: d("1"), Price: d("10")}},
		AmountTotal: d("9.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, 9.5, vals["amount_total"])
	assert.Equal(t, false, vals["partner_id"])
	_, hasSession := vals["session_id"]
	assert.False(t, hasSession)
}

func TestCreateThenFetchRoundTrip(t *testing.T) {
	t.Parallel()

	mem := newMemoryERP()
	svc := newTestService(t, mem.fake)
	lines := []cart.Line{
		{ProductID: 1, Qty: d("2"), Price: d("5.0")},
		{ProductID: 2, Qty: d("1"), Price: d("3.33")},
		{ProductID: 3, Qty: d("4"), Price: d("0.25")},
	}

	id, err := svc.CreateDraftOrder(context.Background(), DraftOrderInput{Lines: lines})
	require.NoError(t, err)

	order, err := svc.FetchOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, order.Lines, len(lines))
	expected := cart.Total(lines)
	assert.InDelta(t, expected.InexactFloat64(), order.AmountTotal.InexactFloat64(), 0.001)
	assert.Equal(t, "draft", order.State.String())
}

func TestFetchOrderNotFound(t *testing.T) {
	t.Parallel()

	mem := newMemoryERP()
	_, err := newTestService(t, mem.fake).FetchOrder(context.Background(), 999)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestFetchLinesByIDsEmptyShortCircuits(t *testing.T) {
	t.Parallel()

	fake := erptest.New()
	lines, err := newTestService(t, fake).FetchLinesByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Zero(t, fake.Total())
}

func TestAppendLineDoesNotTouchOrderTotal(t *testing.T) {
	t.Parallel()

	fake := erptest.New()
	var vals map[string]any
	fake.On(erp.ModelOrder, erp.OpUpdate, func(call erp.Call) (any, error) {
		vals = erptest.Vals(call)
		assert.Equal(t, []int64{5}, erptest.IDs(call))
		return true, nil
	})
	err := newTestService(t, fake).AppendLine(context.Background(), 5, LineInput{
		ProductID: 9,
		Qty:       decimal.NewFromInt(3),
		UnitPrice: decimal.RequireFromString("2.5"),
		Name:      "Widget",
		TaxIDs:    []int64{1},
	})
	require.NoError(t, err)
	_, hasTotal := vals["amount_total"]
	assert.False(t, hasTotal)
	cmd := vals["lines"].([]any)[0].([]any)
	assert.Equal(t, erp.CommandCreate, cmd[0])
	line := cmd[2].(map[string]any)
	assert.Equal(t, 7.5, line["price_subtotal"])
	assert.Equal(t, "Widget", line["full_product_name"])
}

func TestUpdateAndRemoveLineRequirePersistedID(t *testing.T) {
	t.Parallel()

	fake := erptest.New()
	svc := newTestService(t, fake)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(svc.UpdateLine(context.Background(), 0, LineUpdate{Qty: d("1")})))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(svc.RemoveLine(context.Background(), 0)))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(svc.UpdateLine(context.Background(), 3, LineUpdate{})))
	assert.Zero(t, fake.Total())
}

func TestUpdateLineWritesSubtotalWhenQtyAndPriceChange(t *testing.T) {
	t.Parallel()

	fake := erptest.New()
	var vals map[string]any
	fake.On(erp.ModelOrderLine, erp.OpUpdate, func(call erp.Call) (any, error) {
		vals = erptest.Vals(call)
		return true, nil
	})
	fake.On(erp.ModelOrderLine, erp.OpDelete, erptest.Reply(true))
	svc := newTestService(t, fake)

	require.NoError(t, svc.UpdateLine(context.Background(), 11, LineUpdate{Qty: d("2"), UnitPrice: d("4.25")}))
	assert.Equal(t, 8.5, vals["price_subtotal_incl"])
	require.NoError(t, svc.RemoveLine(context.Background(), 11))
	assert.Equal(t, 1, fake.Count(erp.ModelOrderLine, erp.OpDelete))
}

func TestRecomputeTotalWritesLineSum(t *testing.T) {
	t.Parallel()

	mem := newMemoryERP()
	svc := newTestService(t, mem.fake)
	id, err := svc.CreateDraftOrder(context.Background(), DraftOrderInput{
		Lines:       []cart.Line{{ProductID: 1, Qty: d("2"), Price: d("5")}, {ProductID: 2, Qty: d("1"), Price: d("1.5")}},
		AmountTotal: d("1"),
	})
	require.NoError(t, err)

	total, err := svc.RecomputeTotal(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("11.5")), total.String())

	var write erp.Call
	for _, call := range mem.fake.Calls() {
		if call.Model == erp.ModelOrder && call.Operation == erp.OpUpdate {
			write = call
		}
	}
	assert.Equal(t, 11.5, erptest.Vals(write)["amount_total"])
}

func TestQtyOnlyUpdateKeepsTotalInSync(t *testing.T) {
	t.Parallel()

	mem := newMemoryERP()
	svc := newTestService(t, mem.fake)
	id, err := svc.CreateDraftOrder(context.Background(), DraftOrderInput{
		Lines: []cart.Line{{ProductID: 1, Qty: d("2"), Price: d("5")}, {ProductID: 2, Qty: d("1"), Price: d("1.5")}},
	})
	require.NoError(t, err)
	order, err := svc.FetchOrder(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)
	first, second := order.Lines[0].ID, order.Lines[1].ID

	require.NoError(t, svc.UpdateLine(context.Background(), first, LineUpdate{Qty: d("3")}))
	line, err := svc.FetchLine(context.Background(), first)
	require.NoError(t, err)
	assert.True(t, line.SubtotalIncl.Equal(decimal.NewFromInt(15)), line.SubtotalIncl.String())

	total, err := svc.RecomputeTotal(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("16.5")), total.String())

	require.NoError(t, svc.UpdateLine(context.Background(), second, LineUpdate{UnitPrice: d("2")}))
	total, err = svc.RecomputeTotal(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(17)), total.String())

	require.NoError(t, svc.RemoveLine(context.Background(), first))
	total, err = svc.RecomputeTotal(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(2)), total.String())
}

func TestUpdateLineUnknownLine(t *testing.T) {
	t.Parallel()

	mem := newMemoryERP()
	err := newTestService(t, mem.fake).UpdateLine(context.Background(), 404, LineUpdate{Qty: d("1")})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	assert.Zero(t, mem.fake.Count(erp.ModelOrderLine, erp.OpUpdate))
}

func TestConfirmSaleOrder(t *testing.T) {
	t.Parallel()

	fake := erptest.New().OnAction(erp.ModelSaleOrder, erp.ActionConfirm, erptest.Reply(true))
	svc := newTestService(t, fake)
	require.NoError(t, svc.ConfirmSaleOrder(context.Background(), 4))
	assert.Equal(t, 1, fake.CountAction(erp.ModelSaleOrder, erp.ActionConfirm))
	assert.Error(t, svc.ConfirmSaleOrder(context.Background(), 0))
}
