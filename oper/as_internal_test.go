package oper

import (
	"slices"
	"testing"

	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/xlcall"
)

func TestKindFor(t *testing.T) {
	tests := []struct {
		ret  xlcall.Ret
		want errors.Kind
	}{
		{xlcall.RetUncalced, errors.KindUncalculated},
		{xlcall.RetAbort, errors.KindAbort},
		{xlcall.RetStackOvfl, errors.KindStackOverflow},
		{xlcall.RetInvXloper, errors.KindCoerce},
		{xlcall.RetFailed, errors.KindHostFailure},
		{xlcall.RetInvCount, errors.KindHostFailure},
	}
	for _, tt := range tests {
		if got := kindFor(tt.ret); got != tt.want {
			t.Errorf("kindFor(%v) = %v, want %v", tt.ret, got, tt.want)
		}
	}
}

func TestPolicyOrder(t *testing.T) {
	tests := []struct {
		policy Policy
		want   []int
	}{
		{UniDimensional, []int{0, 1, 2, 3, 4, 5}},
		{RowMajor, []int{0, 1, 2, 3, 4, 5}},
		{ColumnMajor, []int{0, 3, 1, 4, 2, 5}},
	}
	for _, tt := range tests {
		if got := tt.policy.order(2, 3); !slices.Equal(got, tt.want) {
			t.Errorf("%v.order(2, 3) = %v, want %v", tt.policy, got, tt.want)
		}
	}
}

func TestImplSelection(t *testing.T) {
	if legacyImpl.ABI() != xlcall.ABILegacy || legacyImpl.Layout().Size() != 16 {
		t.Error("legacy implementation mismatched")
	}
	if modernImpl.ABI() != xlcall.ABIModern || modernImpl.Layout().Size() != 32 {
		t.Error("modern implementation mismatched")
	}
}
