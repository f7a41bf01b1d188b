package qrcode

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefix(t *testing.T) {
	cases := map[string]string{
		"Interflon Metal Clean spray 500ml": "IMC5",
		"Interflon Maintenance Kit":         "IM",
		"Fin Oil":                           "FO",
		"Ab":                                "AB",
		"x y":                               "XY",
		"Interflon Grease LT2 Lube shuttle": "IGLL",
	}
	for name, want := range cases {
		assert.Equal(t, want, Prefix(name), name)
	}
}

func TestGenerateSkipsTakenCodes(t *testing.T) {
	code, err := Generate("Fin Oil", []string{"FO001", "FO002", "XX003"})
	require.NoError(t, err)
	assert.Equal(t, "FO003", code)
}

func TestGenerateExhausted(t *testing.T) {
	existing := make([]string, 0, maxCounter)
	for n := 1; n <= maxCounter; n++ {
		existing = append(existing, fmt.Sprintf("FO%03d", n))
	}
	_, err := Generate("Fin Oil", existing)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestPNG(t *testing.T) {
	png, err := PNG("IFLS001", 128)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = PNG(" ", 128)
	assert.Error(t, err)
}
