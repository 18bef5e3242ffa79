package simhost

import (
	"sort"
	"strconv"

	"github.com/davidclayton/xlw/cellmatrix"
	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/xlref"
)

type cellKey struct {
	row, col uint32
}

// Sheet is a sparse grid of constant cell values.
type Sheet struct {
	ID    uint64
	Name  string
	cells map[cellKey]cellmatrix.CellValue
}

func newSheet(id uint64, name string) *Sheet {
	return &Sheet{ID: id, Name: name, cells: make(map[cellKey]cellmatrix.CellValue)}
}

// Set stores v at a zero-based position. Storing an empty value clears the cell.
func (s *Sheet) Set(row, col uint32, v cellmatrix.CellValue) {
	if v.IsEmpty() {
		delete(s.cells, cellKey{row, col})
		return
	}
	s.cells[cellKey{row, col}] = v
}

// Get returns the value at a zero-based position; unset cells are empty.
func (s *Sheet) Get(row, col uint32) cellmatrix.CellValue {
	return s.cells[cellKey{row, col}]
}

// UsedRange returns the smallest area covering every non-empty cell.
func (s *Sheet) UsedRange() (xlref.Rect, bool) {
	if len(s.cells) == 0 {
		return xlref.Rect{}, false
	}
	first := true
	var r xlref.Rect
	for k := range s.cells {
		if first {
			r = xlref.Rect{RowFirst: k.row, RowLast: k.row, ColFirst: k.col, ColLast: k.col}
			first = false
			continue
		}
		r.RowFirst = min(r.RowFirst, k.row)
		r.RowLast = max(r.RowLast, k.row)
		r.ColFirst = min(r.ColFirst, k.col)
		r.ColLast = max(r.ColLast, k.col)
	}
	return r, true
}

// Area copies a rectangle of the sheet into a cell matrix.
func (s *Sheet) Area(r xlref.Rect) (*cellmatrix.CellMatrix, error) {
	m, err := cellmatrix.New(int(r.Rows()), int(r.Columns()))
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < r.Rows(); i++ {
		for j := uint32(0); j < r.Columns(); j++ {
			if err := m.SetCell(int(i), int(j), s.Get(r.RowFirst+i, r.ColFirst+j)); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// AddSheet creates a sheet and returns its id. The first sheet added
// becomes the active sheet.
func (h *Host) AddSheet(name string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addSheetLocked(name)
}

func (h *Host) addSheetLocked(name string) uint64 {
	h.nextSheet++
	id := h.nextSheet
	h.sheets[id] = newSheet(id, name)
	if h.active == 0 {
		h.active = id
	}
	return id
}

// Sheet returns a sheet by id. Id 0 is the active sheet.
func (h *Host) Sheet(id uint64) (*Sheet, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sheetLocked(id)
}

func (h *Host) sheetLocked(id uint64) (*Sheet, bool) {
	if id == xlref.CurrentSheet {
		id = h.active
	}
	s, ok := h.sheets[id]
	return s, ok
}

// SheetByName looks a sheet up by name.
func (h *Host) SheetByName(name string) (*Sheet, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sheets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Sheets returns every sheet ordered by id.
func (h *Host) Sheets() []*Sheet {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Sheet, 0, len(h.sheets))
	for _, s := range h.sheets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetActive selects the sheet that id 0 refers to.
func (h *Host) SetActive(id uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sheets[id]; !ok {
		return errors.NotFound(errors.PhaseHost, "sheet", sheetName(id))
	}
	h.active = id
	return nil
}

// SetCell stores a constant on a sheet.
func (h *Host) SetCell(sheet uint64, row, col uint32, v cellmatrix.CellValue) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sheetLocked(sheet)
	if !ok {
		return errors.NotFound(errors.PhaseHost, "sheet", sheetName(sheet))
	}
	s.Set(row, col, v)
	return nil
}

// Cell reads a constant from a sheet; unknown sheets read as empty.
func (h *Host) Cell(sheet uint64, row, col uint32) cellmatrix.CellValue {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sheetLocked(sheet)
	if !ok {
		return cellmatrix.Empty()
	}
	return s.Get(row, col)
}

func sheetName(id uint64) string {
	return "#" + strconv.FormatUint(id, 10)
}
