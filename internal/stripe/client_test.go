package stripe

import "testing"

func TestMinorUnits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		price float64
		want  int64
	}{
		{name: "whole rupees", price: 899, want: 89900},
		{name: "paise fraction", price: 12.34, want: 1234},
		{name: "rounds half up", price: 0.005, want: 1},
		{name: "float representation error", price: 19.99, want: 1999},
		{name: "zero", price: 0, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := MinorUnits(tt.price); got != tt.want {
				t.Fatalf("MinorUnits(%v) = %d, want %d", tt.price, got, tt.want)
			}
		})
	}
}
