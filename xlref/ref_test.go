package xlref

import (
	stderrors "errors"
	"testing"

	"github.com/davidclayton/xlw/errors"
)

func TestNew_RejectsInvertedAreas(t *testing.T) {
	tests := []struct {
		name string
		area Rect
	}{
		{"rows inverted", Rect{RowFirst: 5, RowLast: 2, ColFirst: 0, ColLast: 0}},
		{"columns inverted", Rect{RowFirst: 0, RowLast: 0, ColFirst: 3, ColLast: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(CurrentSheet, tt.area)
			if err == nil {
				t.Fatal("expected error")
			}
			if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConstruct, Kind: errors.KindInvalidInput}) {
				t.Errorf("unexpected error: %v", err)
			}
			if _, err := NewArea(tt.area.RowFirst, tt.area.RowLast, tt.area.ColFirst, tt.area.ColLast); err == nil {
				t.Error("NewArea accepted inverted area")
			}
		})
	}
}

func TestNew_NoAreas(t *testing.T) {
	if _, err := New(1); err == nil {
		t.Fatal("expected error for empty reference")
	}
}

func TestRef_Accessors(t *testing.T) {
	a := Rect{RowFirst: 0, RowLast: 1, ColFirst: 0, ColLast: 2}
	b := Cell(9, 4)
	r, err := New(3, a, b)
	if err != nil {
		t.Fatal(err)
	}
	if r.Sheet() != 3 || r.NumAreas() != 2 {
		t.Fatalf("sheet=%d areas=%d", r.Sheet(), r.NumAreas())
	}
	if r.IsLocal() {
		t.Error("multi-area reference reported local")
	}
	got, err := r.Area(1)
	if err != nil || got != b {
		t.Errorf("Area(1) = %v, %v", got, err)
	}
	if _, err := r.Area(2); err == nil {
		t.Error("Area(2) should fail")
	}
	if a.Rows() != 2 || a.Columns() != 3 || a.Count() != 6 {
		t.Errorf("dims = %dx%d (%d)", a.Rows(), a.Columns(), a.Count())
	}
	if !a.Contains(1, 2) || a.Contains(2, 0) {
		t.Error("Contains mismatch")
	}

	areas := r.Areas()
	areas[0].RowLast = 100
	if r.areas[0].RowLast != 1 {
		t.Error("Areas() exposed internal slice")
	}
}

func TestRef_StringAndParse(t *testing.T) {
	r, err := Parse(CurrentSheet, "R1C1:R2C3, R10C5")
	if err != nil {
		t.Fatal(err)
	}
	if r.String() != "R1C1:R2C3,R10C5" {
		t.Errorf("String() = %q", r.String())
	}
	want, _ := New(CurrentSheet, Rect{0, 1, 0, 2}, Cell(9, 4))
	if !r.Equal(want) {
		t.Errorf("Parse = %v, want %v", r, want)
	}

	local, _ := Single(0, 0, 0, 0)
	if !local.IsLocal() {
		t.Error("single area on current sheet should be local")
	}
	other, _ := New(2, Cell(0, 0))
	if other.String() != "[2]R1C1" {
		t.Errorf("String() = %q", other.String())
	}

	for _, bad := range []string{"A1", "R0C1", "R1C0", "R2C1:R1C1", "RxC1"} {
		if _, err := Parse(CurrentSheet, bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}
