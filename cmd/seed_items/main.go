// seed_items genera el script SQL de carga inicial del catálogo de equipos a partir de la
// exportación CSV del inventario institucional (Latin-1 o UTF-8, separador ';' o ',').
//
// Uso: go run ./cmd/seed_items inventario.csv [salida.sql]
// Columnas (encabezado obligatorio): codigo, nombre, categoria, cantidad.
// Cada ítem entra con cantidad cero y su existencia inicial se registra como una entrada (IN)
// en stock_movements, de modo que el libro reproduce la cantidad desde el primer movimiento.
package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/prestamos-api/pkg/textutil"
)

const seedActor = "seed_items"

type catalogRow struct {
	Code     string
	Name     string
	Category string
	Quantity int64
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "uso: seed_items inventario.csv [salida.sql]")
		os.Exit(2)
	}
	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	rows, err := parseCatalog(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if len(os.Args) > 2 {
		f, err := os.Create(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if err := writeSQL(out, rows, func() string { return uuid.New().String() }); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Generado: %d ítems\n", len(rows))
}

// parseCatalog decodifica el CSV. Las exportaciones del sistema anterior vienen en Latin-1;
// si el contenido ya es UTF-8 válido se usa tal cual.
func parseCatalog(raw []byte) ([]catalogRow, error) {
	var src io.Reader = bytes.NewReader(raw)
	if !utf8.Valid(raw) {
		src = transform.NewReader(src, charmap.ISO8859_1.NewDecoder())
	}
	text, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	text = bytes.TrimPrefix(text, []byte("\ufeff"))

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = detectDelimiter(text)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("encabezado: %w", err)
	}
	cols, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	var rows []catalogRow
	seen := make(map[string]int)
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		row := catalogRow{
			Code:     strings.TrimSpace(rec[cols["codigo"]]),
			Name:     strings.TrimSpace(rec[cols["nombre"]]),
			Category: strings.TrimSpace(rec[cols["categoria"]]),
		}
		if row.Code == "" && row.Name == "" {
			continue
		}
		if row.Code == "" || row.Name == "" {
			return nil, fmt.Errorf("línea %d: código y nombre son obligatorios", line)
		}
		qty := strings.TrimSpace(rec[cols["cantidad"]])
		if qty != "" {
			row.Quantity, err = strconv.ParseInt(qty, 10, 64)
			if err != nil || row.Quantity < 0 {
				return nil, fmt.Errorf("línea %d: cantidad %q inválida", line, qty)
			}
		}
		if prev, ok := seen[row.Code]; ok {
			return nil, fmt.Errorf("línea %d: código %s repetido (línea %d)", line, row.Code, prev)
		}
		seen[row.Code] = line
		rows = append(rows, row)
	}
	return rows, nil
}

func detectDelimiter(text []byte) rune {
	first := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		first = text[:i]
	}
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

// headerIndex ubica las columnas aceptando nombres en español o inglés, con o sin tildes.
func headerIndex(header []string) (map[string]int, error) {
	aliases := map[string]string{
		"codigo": "codigo", "code": "codigo",
		"nombre": "nombre", "name": "nombre",
		"categoria": "categoria", "category": "categoria",
		"cantidad": "cantidad", "quantity": "cantidad",
	}
	cols := make(map[string]int)
	for i, h := range header {
		if key, ok := aliases[textutil.Fold(h)]; ok {
			cols[key] = i
		}
	}
	for _, want := range []string{"codigo", "nombre", "categoria", "cantidad"} {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("encabezado sin columna %q", want)
		}
	}
	return cols, nil
}

// writeSQL escribe un INSERT idempotente por ítem (ON CONFLICT por código) y, si la cantidad
// inicial es positiva, la entrada de secuencia 1 del libro solo para los ítems recién creados.
func writeSQL(w io.Writer, rows []catalogRow, newID func() string) error {
	var b strings.Builder
	b.WriteString("-- Catálogo inicial de equipos\n")
	b.WriteString("-- Generado por cmd/seed_items\n\n")
	b.WriteString("BEGIN;\n\n")
	for _, row := range rows {
		itemID := newID()
		if row.Quantity == 0 {
			fmt.Fprintf(&b, "INSERT INTO items (id, code, name, category, quantity, created_at, updated_at)\n")
			fmt.Fprintf(&b, "VALUES ('%s', '%s', '%s', '%s', 0, now(), now())\n", itemID, escapeSQL(row.Code), escapeSQL(row.Name), escapeSQL(row.Category))
			b.WriteString("ON CONFLICT (code) DO NOTHING;\n\n")
			continue
		}
		b.WriteString("WITH ins AS (\n")
		fmt.Fprintf(&b, "\tINSERT INTO items (id, code, name, category, quantity, created_at, updated_at)\n")
		fmt.Fprintf(&b, "\tVALUES ('%s', '%s', '%s', '%s', %d, now(), now())\n", itemID, escapeSQL(row.Code), escapeSQL(row.Name), escapeSQL(row.Category), row.Quantity)
		b.WriteString("\tON CONFLICT (code) DO NOTHING\n")
		b.WriteString("\tRETURNING id\n")
		b.WriteString(")\n")
		b.WriteString("INSERT INTO stock_movements (id, item_id, sequence, type, amount, quantity_before, quantity_after, actor_id, notes, created_at)\n")
		fmt.Fprintf(&b, "SELECT '%s', id, 1, 'IN', %d, 0, %d, '%s', 'carga inicial', now() FROM ins;\n\n", newID(), row.Quantity, row.Quantity, seedActor)
	}
	b.WriteString("COMMIT;\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
