package oper

// Policy selects how a two-dimensional array flattens into a vector.
type Policy uint8

const (
	// UniDimensional accepts only a single row or a single column.
	UniDimensional Policy = iota
	// RowMajor reads each row left to right, top row first.
	RowMajor
	// ColumnMajor reads each column top to bottom, left column first.
	ColumnMajor
)

func (p Policy) String() string {
	switch p {
	case UniDimensional:
		return "unidimensional"
	case RowMajor:
		return "row-major"
	case ColumnMajor:
		return "column-major"
	}
	return "policy(?)"
}

// order returns row-major element indices in the order the policy reads
// them.
func (p Policy) order(rows, cols int) []int {
	idx := make([]int, 0, rows*cols)
	if p == ColumnMajor {
		for j := 0; j < cols; j++ {
			for i := 0; i < rows; i++ {
				idx = append(idx, i*cols+j)
			}
		}
		return idx
	}
	for i := 0; i < rows*cols; i++ {
		idx = append(idx, i)
	}
	return idx
}
