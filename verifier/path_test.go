package verifier

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSerial(t *testing.T) {
	cases := []struct {
		name   string
		serial *big.Int
		want   string
	}{
		{"small", big.NewInt(0x2a), "2a"},
		{"odd nibble count has no leading zero", big.NewInt(0xabc), "abc"},
		{"zero", big.NewInt(0), "0"},
		{"nil", nil, ""},
		{"large", new(big.Int).SetBytes([]byte{0x0f, 0x92, 0x00, 0x9e, 0x85, 0x3b}), "f92009e853b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, normalizeSerial(tc.serial))
		})
	}
}
