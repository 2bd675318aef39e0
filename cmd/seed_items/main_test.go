package main

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestParseCatalog_Latin1Semicolon(t *testing.T) {
	src := "Código;Nombre;Categoría;Cantidad\nAV-001;Cámara réflex;Audiovisual;3\nTI-002;Portátil;Cómputo;\n"
	raw, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(src))
	require.NoError(t, err)

	rows, err := parseCatalog(raw)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, catalogRow{Code: "AV-001", Name: "Cámara réflex", Category: "Audiovisual", Quantity: 3}, rows[0])
	assert.Equal(t, int64(0), rows[1].Quantity)
	assert.Equal(t, "Portátil", rows[1].Name)
}

func TestParseCatalog_UTF8CommaEnglishHeader(t *testing.T) {
	raw := []byte("\ufeffcode,name,category,quantity\nPRJ-1,Proyector,av,5\n,,,\n")
	rows, err := parseCatalog(raw)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(5), rows[0].Quantity)
}

func TestParseCatalog_Errors(t *testing.T) {
	cases := map[string]string{
		"sin columna cantidad": "codigo;nombre;categoria\nA;B;C\n",
		"cantidad negativa":    "codigo;nombre;categoria;cantidad\nA;B;C;-1\n",
		"cantidad no numérica": "codigo;nombre;categoria;cantidad\nA;B;C;tres\n",
		"código repetido":      "codigo;nombre;categoria;cantidad\nA;B;C;1\nA;D;C;1\n",
		"nombre vacío":         "codigo;nombre;categoria;cantidad\nA;;C;1\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseCatalog([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestWriteSQL_LedgerEntryOnlyForPositiveStock(t *testing.T) {
	n := 0
	newID := func() string { n++; return "id-" + strconv.Itoa(n) }

	var b strings.Builder
	require.NoError(t, writeSQL(&b, []catalogRow{
		{Code: "AV-001", Name: "Cámara d'estudio", Category: "av", Quantity: 2},
		{Code: "AV-002", Name: "Trípode", Category: "av"},
	}, newID))
	sql := b.String()

	assert.Contains(t, sql, "'Cámara d''estudio'")
	assert.Contains(t, sql, "SELECT 'id-2', id, 1, 'IN', 2, 0, 2, 'seed_items'")
	assert.Equal(t, 1, strings.Count(sql, "INSERT INTO stock_movements"))
	assert.Equal(t, 2, strings.Count(sql, "ON CONFLICT (code) DO NOTHING"))
	assert.True(t, strings.HasSuffix(sql, "COMMIT;\n"))
}
