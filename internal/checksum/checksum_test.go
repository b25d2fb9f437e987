package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLuhn(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "valid siret", in: "73282932000074", want: true},
		{name: "valid siren", in: "732829320", want: true},
		{name: "invalid last digit", in: "73282932000075", want: false},
		{name: "non digit", in: "7328A932000074", want: false},
		{name: "empty", in: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Luhn(tt.in))
		})
	}
}

func TestIBAN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "valid french iban", in: "FR1420041010050500013M02606", want: true},
		{name: "valid with spaces", in: "FR14 2004 1010 0505 0001 3M02 606", want: true},
		{name: "bad check digits", in: "FR1520041010050500013M02606", want: false},
		{name: "too short", in: "FR14", want: false},
		{name: "illegal character", in: "FR14_20041010050500013M02606", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IBAN(tt.in))
		})
	}
}

func TestNIR(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "valid nir", in: "255081416802538", want: true},
		{name: "bad key", in: "255081416802537", want: false},
		{name: "wrong length", in: "25508141680253", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NIR(tt.in))
		})
	}
}
