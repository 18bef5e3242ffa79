package cellmatrix

import (
	"math"
	"testing"

	"github.com/davidclayton/xlw/xlcall"
)

func TestCellValue_Kinds(t *testing.T) {
	tests := []struct {
		name string
		v    CellValue
		kind Kind
		text string
	}{
		{"empty", Empty(), KindEmpty, ""},
		{"number", Number(2.5), KindNumber, "2.5"},
		{"string", String("abc"), KindString, "abc"},
		{"true", Bool(true), KindBool, "TRUE"},
		{"false", Bool(false), KindBool, "FALSE"},
		{"error", Error(xlcall.ErrNA), KindError, "#N/A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", tt.v.Kind(), tt.kind)
			}
			if tt.v.String() != tt.text {
				t.Errorf("String() = %q, want %q", tt.v.String(), tt.text)
			}
			if !tt.v.Equal(tt.v) {
				t.Error("value not equal to itself")
			}
		})
	}

	if Number(1).Equal(String("1")) {
		t.Error("number equal to string")
	}
	if Number(math.NaN()).Equal(Number(math.NaN())) {
		t.Error("NaN cells compared equal")
	}
	var zero CellValue
	if !zero.IsEmpty() {
		t.Error("zero value is not empty")
	}
}

func TestCellMatrix_Shape(t *testing.T) {
	if _, err := New(0, 3); err == nil {
		t.Error("New(0, 3) should fail")
	}
	if _, err := New(2, -1); err == nil {
		t.Error("New(2, -1) should fail")
	}

	m, err := New(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows() != 2 || m.Columns() != 3 {
		t.Fatalf("shape = %dx%d", m.Rows(), m.Columns())
	}
	if err := m.SetCell(1, 2, Number(7)); err != nil {
		t.Fatal(err)
	}
	v, err := m.Cell(1, 2)
	if err != nil || v.NumericValue() != 7 {
		t.Errorf("Cell(1,2) = %v, %v", v, err)
	}
	if _, err := m.Cell(2, 0); err == nil {
		t.Error("Cell(2,0) should fail")
	}
	if err := m.SetCell(0, 3, Empty()); err == nil {
		t.Error("SetCell(0,3) should fail")
	}
	if !m.At(5, 5).IsEmpty() {
		t.Error("At out of range should be empty")
	}
}

func TestCellMatrix_FromRows(t *testing.T) {
	m, err := FromRows([][]CellValue{
		{Number(1), String("x")},
		{Bool(true)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows() != 2 || m.Columns() != 2 {
		t.Fatalf("shape = %dx%d", m.Rows(), m.Columns())
	}
	if !m.At(1, 1).IsEmpty() {
		t.Error("short row not padded")
	}
	vals := m.Values()
	vals[0] = Empty()
	if m.At(0, 0).IsEmpty() {
		t.Error("Values() exposed internal slice")
	}

	other, _ := FromRows([][]CellValue{{Number(1), String("x")}, {Bool(true), Empty()}})
	if !m.Equal(other) {
		t.Error("equal matrices compared unequal")
	}
}

func TestMatrix(t *testing.T) {
	m, err := MatrixFromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows() != 2 || m.Columns() != 3 || m.At(1, 0) != 4 {
		t.Fatalf("unexpected matrix %v", m.Data())
	}
	if err := m.Set(0, 0, 9); err != nil || m.At(0, 0) != 9 {
		t.Errorf("Set failed: %v", err)
	}
	if err := m.Set(2, 0, 1); err == nil {
		t.Error("Set out of range should fail")
	}
	if _, err := MatrixFromRows([][]float64{{1, 2}, {3}}); err == nil {
		t.Error("ragged rows should fail")
	}
	if _, err := MatrixFromRows(nil); err == nil {
		t.Error("empty rows should fail")
	}
}
