package orders

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fieldpos-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
)

// DraftLines holds lines that have no ERP id yet. They are addressed by position only.
type DraftLines struct {
	lines []cart.Line
}

// NewDraftLines copies lines into a new draft set.
func NewDraftLines(lines ...cart.Line) *DraftLines {
	return &DraftLines{lines: append([]cart.Line(nil), lines...)}
}

// Add appends line and returns its position.
func (d *DraftLines) Add(line cart.Line) int {
	d.lines = append(d.lines, line)
	return len(d.lines) - 1
}

// UpdateAt replaces the line at position i.
func (d *DraftLines) UpdateAt(i int, line cart.Line) error {
	if err := d.check(i); err != nil {
		return err
	}
	d.lines[i] = line
	return nil
}

// RemoveAt drops the line at position i; later lines shift down by one.
func (d *DraftLines) RemoveAt(i int) error {
	if err := d.check(i); err != nil {
		return err
	}
	d.lines = append(d.lines[:i], d.lines[i+1:]...)
	return nil
}

// Lines returns a copy of the current lines.
func (d *DraftLines) Lines() []cart.Line {
	return append([]cart.Line(nil), d.lines...)
}

func (d *DraftLines) Len() int {
	return len(d.lines)
}

// Total sums the line subtotals.
func (d *DraftLines) Total() decimal.Decimal {
	return cart.Total(d.lines)
}

func (d *DraftLines) check(i int) error {
	if i < 0 || i >= len(d.lines) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("draft line %d out of range (have %d)", i, len(d.lines)))
	}
	return nil
}
