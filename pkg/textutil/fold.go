// Package textutil normaliza texto de búsqueda: sin tildes, minúsculas y espacios simples.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold devuelve s sin marcas diacríticas, en minúsculas y con espacios colapsados,
// para comparar nombres como "José Núñez" y "jose nunez".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Contains indica si haystack contiene needle comparando ambos plegados con Fold.
func Contains(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}
