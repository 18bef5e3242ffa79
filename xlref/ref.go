// Package xlref models range references: one or more rectangular cell
// areas on a sheet.
package xlref

import (
	"strconv"
	"strings"

	"github.com/davidclayton/xlw/errors"
)

// CurrentSheet is the sheet id of a reference local to the calling sheet.
const CurrentSheet uint64 = 0

// Rect is one rectangular area. Indices are zero-based and inclusive.
type Rect struct {
	RowFirst uint32
	RowLast  uint32
	ColFirst uint32
	ColLast  uint32
}

// NewArea validates and returns an area.
func NewArea(rowFirst, rowLast, colFirst, colLast uint32) (Rect, error) {
	r := Rect{RowFirst: rowFirst, RowLast: rowLast, ColFirst: colFirst, ColLast: colLast}
	if err := r.validate(); err != nil {
		return Rect{}, err
	}
	return r, nil
}

// Cell returns the single-cell area at row, col.
func Cell(row, col uint32) Rect {
	return Rect{RowFirst: row, RowLast: row, ColFirst: col, ColLast: col}
}

func (r Rect) validate() *errors.Error {
	if r.RowFirst > r.RowLast {
		return errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Value(r).
			Detail("first row %d after last row %d", r.RowFirst, r.RowLast).
			Build()
	}
	if r.ColFirst > r.ColLast {
		return errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Value(r).
			Detail("first column %d after last column %d", r.ColFirst, r.ColLast).
			Build()
	}
	return nil
}

// Rows returns the number of rows in the area.
func (r Rect) Rows() uint32 { return r.RowLast - r.RowFirst + 1 }

// Columns returns the number of columns in the area.
func (r Rect) Columns() uint32 { return r.ColLast - r.ColFirst + 1 }

// Count returns the number of cells in the area.
func (r Rect) Count() uint64 { return uint64(r.Rows()) * uint64(r.Columns()) }

// Contains reports whether row, col lies inside the area.
func (r Rect) Contains(row, col uint32) bool {
	return row >= r.RowFirst && row <= r.RowLast && col >= r.ColFirst && col <= r.ColLast
}

// String renders the area in one-based R1C1 form.
func (r Rect) String() string {
	first := "R" + strconv.FormatUint(uint64(r.RowFirst)+1, 10) + "C" + strconv.FormatUint(uint64(r.ColFirst)+1, 10)
	if r.Rows() == 1 && r.Columns() == 1 {
		return first
	}
	return first + ":R" + strconv.FormatUint(uint64(r.RowLast)+1, 10) + "C" + strconv.FormatUint(uint64(r.ColLast)+1, 10)
}

// Ref is a possibly multi-area reference on one sheet.
type Ref struct {
	sheet uint64
	areas []Rect
}

// New builds a reference. Every area must satisfy first <= last on both
// axes; inverted areas are rejected, not normalized.
func New(sheet uint64, areas ...Rect) (Ref, error) {
	if len(areas) == 0 {
		return Ref{}, errors.InvalidInput(errors.PhaseConstruct, "reference needs at least one area")
	}
	if len(areas) > 0xFFFF {
		return Ref{}, errors.InvalidInput(errors.PhaseConstruct, "too many areas in reference")
	}
	for i, a := range areas {
		if err := a.validate(); err != nil {
			err.Path = []string{"area[" + strconv.Itoa(i) + "]"}
			return Ref{}, err
		}
	}
	return Ref{sheet: sheet, areas: append([]Rect(nil), areas...)}, nil
}

// Single builds a one-area reference on the current sheet.
func Single(rowFirst, rowLast, colFirst, colLast uint32) (Ref, error) {
	return New(CurrentSheet, Rect{RowFirst: rowFirst, RowLast: rowLast, ColFirst: colFirst, ColLast: colLast})
}

// Sheet returns the sheet id; CurrentSheet for local references.
func (r Ref) Sheet() uint64 { return r.sheet }

// Areas returns a copy of the areas.
func (r Ref) Areas() []Rect { return append([]Rect(nil), r.areas...) }

// NumAreas returns the number of areas.
func (r Ref) NumAreas() int { return len(r.areas) }

// Area returns area i.
func (r Ref) Area(i int) (Rect, error) {
	if i < 0 || i >= len(r.areas) {
		return Rect{}, errors.OutOfBounds(errors.PhaseConvert, []string{"area"}, i, len(r.areas))
	}
	return r.areas[i], nil
}

// IsLocal reports whether the reference is a single area on the current
// sheet, the shape stored as a sheet-reference record.
func (r Ref) IsLocal() bool {
	return r.sheet == CurrentSheet && len(r.areas) == 1
}

// Equal reports whether both references name the same areas in order.
func (r Ref) Equal(o Ref) bool {
	if r.sheet != o.sheet || len(r.areas) != len(o.areas) {
		return false
	}
	for i := range r.areas {
		if r.areas[i] != o.areas[i] {
			return false
		}
	}
	return true
}

func (r Ref) String() string {
	parts := make([]string, len(r.areas))
	for i, a := range r.areas {
		parts[i] = a.String()
	}
	s := strings.Join(parts, ",")
	if r.sheet != CurrentSheet {
		s = "[" + strconv.FormatUint(r.sheet, 10) + "]" + s
	}
	return s
}

// Parse reads one-based R1C1 areas separated by commas, e.g. "R1C1:R2C3,R5C1".
func Parse(sheet uint64, s string) (Ref, error) {
	var areas []Rect
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		first, last, isRange := strings.Cut(part, ":")
		r1, c1, err := parseCell(first)
		if err != nil {
			return Ref{}, err
		}
		r2, c2 := r1, c1
		if isRange {
			if r2, c2, err = parseCell(last); err != nil {
				return Ref{}, err
			}
		}
		areas = append(areas, Rect{RowFirst: r1, RowLast: r2, ColFirst: c1, ColLast: c2})
	}
	return New(sheet, areas...)
}

func parseCell(s string) (uint32, uint32, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	rowPart, colPart, ok := strings.Cut(strings.TrimPrefix(s, "R"), "C")
	if !ok || !strings.HasPrefix(s, "R") {
		return 0, 0, errors.InvalidInput(errors.PhaseConstruct, "malformed cell "+strconv.Quote(s))
	}
	row, err := strconv.ParseUint(rowPart, 10, 32)
	if err != nil || row == 0 {
		return 0, 0, errors.InvalidInput(errors.PhaseConstruct, "malformed row in "+strconv.Quote(s))
	}
	col, err := strconv.ParseUint(colPart, 10, 32)
	if err != nil || col == 0 {
		return 0, 0, errors.InvalidInput(errors.PhaseConstruct, "malformed column in "+strconv.Quote(s))
	}
	return uint32(row - 1), uint32(col - 1), nil
}
