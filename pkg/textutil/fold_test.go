package textutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/prestamos-api/pkg/textutil"
)

func TestFold(t *testing.T) {
	cases := map[string]string{
		"José Núñez":        "jose nunez",
		"  ANA   María  ":   "ana maria",
		"EMP-0042":          "emp-0042",
		"":                  "",
		"Sinceridad Pérez ": "sinceridad perez",
	}
	for in, want := range cases {
		assert.Equal(t, want, textutil.Fold(in), "Fold(%q)", in)
	}
}

func TestContains(t *testing.T) {
	assert.True(t, textutil.Contains("José Núñez", "nunez"))
	assert.True(t, textutil.Contains("José Núñez", "JOSÉ"))
	assert.False(t, textutil.Contains("José Núñez", "pedro"))
}
