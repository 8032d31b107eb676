package domain

import (
	"errors"
	"math"
	"testing"
)

func TestMoneyMul(t *testing.T) {
	tests := []struct {
		name    string
		amount  Money
		odds    Odds
		want    Money
		wantErr bool
	}{
		{"simple", 1_000_000_000, 3, 3_000_000_000, false},
		{"exactly max", math.MaxUint64, 1, math.MaxUint64, false},
		{"max via factors", 6148914691236517205, 3, math.MaxUint64, false},
		{"one past max", 9223372036854775808, 2, 0, true},
		{"zero odds", 10, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.amount.Mul(tt.odds)
			if tt.wantErr {
				if !errors.Is(err, ErrOverflow) {
					t.Fatalf("Mul() err = %v, want overflow", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Mul() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Mul() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMoneyAdd(t *testing.T) {
	got, err := Money(math.MaxUint64 - 5).Add(5)
	if err != nil || got != math.MaxUint64 {
		t.Fatalf("Add() = %d, %v; want max, nil", got, err)
	}
	if _, err := Money(math.MaxUint64 - 5).Add(6); !errors.Is(err, ErrOverflow) {
		t.Fatalf("Add() err = %v, want overflow", err)
	}
}

func TestMoneyString(t *testing.T) {
	tests := map[Money]string{
		0:             "0.000000000",
		1:             "0.000000001",
		1_500_000_000: "1.500000000",
		3_000_000_000: "3.000000000",
	}
	for m, want := range tests {
		if got := m.String(); got != want {
			t.Errorf("Money(%d).String() = %q, want %q", uint64(m), got, want)
		}
	}
}
