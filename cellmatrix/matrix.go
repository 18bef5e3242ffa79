package cellmatrix

import (
	"strconv"

	"github.com/davidclayton/xlw/errors"
)

// CellMatrix is a row-major grid of cells. Its shape is fixed at
// construction.
type CellMatrix struct {
	cells []CellValue
	rows  int
	cols  int
}

// New returns a rows x cols matrix of empty cells.
func New(rows, cols int) (*CellMatrix, error) {
	if err := checkShape(rows, cols); err != nil {
		return nil, err
	}
	return &CellMatrix{cells: make([]CellValue, rows*cols), rows: rows, cols: cols}, nil
}

// FromRows builds a matrix as wide as the longest row; short rows are
// padded with empty cells.
func FromRows(rows [][]CellValue) (*CellMatrix, error) {
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	m, err := New(len(rows), cols)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		copy(m.cells[i*cols:], r)
	}
	return m, nil
}

func checkShape(rows, cols int) error {
	if rows < 1 || cols < 1 {
		return errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Detail("matrix shape %dx%d must be at least 1x1", rows, cols).
			Build()
	}
	return nil
}

func (m *CellMatrix) Rows() int    { return m.rows }
func (m *CellMatrix) Columns() int { return m.cols }

// Cell returns the value at row i, column j.
func (m *CellMatrix) Cell(i, j int) (CellValue, error) {
	if err := m.check(i, j); err != nil {
		return CellValue{}, err
	}
	return m.cells[i*m.cols+j], nil
}

// SetCell stores v at row i, column j.
func (m *CellMatrix) SetCell(i, j int, v CellValue) error {
	if err := m.check(i, j); err != nil {
		return err
	}
	m.cells[i*m.cols+j] = v
	return nil
}

// At is Cell without bounds reporting; out of range yields an empty cell.
func (m *CellMatrix) At(i, j int) CellValue {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		return CellValue{}
	}
	return m.cells[i*m.cols+j]
}

// Values returns a row-major copy of the cells.
func (m *CellMatrix) Values() []CellValue {
	return append([]CellValue(nil), m.cells...)
}

// Equal reports whether both matrices have the same shape and cells.
func (m *CellMatrix) Equal(o *CellMatrix) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for i := range m.cells {
		if !m.cells[i].Equal(o.cells[i]) {
			return false
		}
	}
	return true
}

func (m *CellMatrix) check(i, j int) error {
	if i < 0 || i >= m.rows {
		return errors.OutOfBounds(errors.PhaseConvert, []string{"row"}, i, m.rows)
	}
	if j < 0 || j >= m.cols {
		return errors.OutOfBounds(errors.PhaseConvert, []string{"row[" + strconv.Itoa(i) + "]", "column"}, j, m.cols)
	}
	return nil
}

// Matrix is a row-major grid of numbers.
type Matrix struct {
	data []float64
	rows int
	cols int
}

// NewMatrix returns a rows x cols matrix of zeros.
func NewMatrix(rows, cols int) (*Matrix, error) {
	if err := checkShape(rows, cols); err != nil {
		return nil, err
	}
	return &Matrix{data: make([]float64, rows*cols), rows: rows, cols: cols}, nil
}

// MatrixFromRows builds a matrix from equal-length rows.
func MatrixFromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, checkShape(0, 0)
	}
	m, err := NewMatrix(len(rows), len(rows[0]))
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		if len(r) != m.cols {
			return nil, errors.New(errors.PhaseConstruct, errors.KindShape).
				Detail("row %d has %d columns, want %d", i, len(r), m.cols).
				Build()
		}
		copy(m.data[i*m.cols:], r)
	}
	return m, nil
}

func (m *Matrix) Rows() int    { return m.rows }
func (m *Matrix) Columns() int { return m.cols }

// At returns element i, j; out of range yields zero.
func (m *Matrix) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		return 0
	}
	return m.data[i*m.cols+j]
}

// Set stores v at i, j.
func (m *Matrix) Set(i, j int, v float64) error {
	if i < 0 || i >= m.rows {
		return errors.OutOfBounds(errors.PhaseConstruct, []string{"row"}, i, m.rows)
	}
	if j < 0 || j >= m.cols {
		return errors.OutOfBounds(errors.PhaseConstruct, []string{"column"}, j, m.cols)
	}
	m.data[i*m.cols+j] = v
	return nil
}

// Data returns a row-major copy of the elements.
func (m *Matrix) Data() []float64 {
	return append([]float64(nil), m.data...)
}
