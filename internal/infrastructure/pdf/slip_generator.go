// Package pdf genera el comprobante de préstamo imprimible (A4).
//
// Layout:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Institución + título  │  N° solicitud + estado     │
//	│  SOLICITANTE: nombre / N° empleado / dependencia            │
//	│  FECHAS: préstamo / devolución / vence                      │
//	│  TABLA: # | Código | Descripción | Cant. | Observación      │
//	│  TOTAL + DECISIÓN                                           │
//	│  FIRMAS: solicitante / almacén  +  QR con el id             │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/prestamos-api/internal/application/dto"
	"github.com/jhoicas/prestamos-api/internal/application/ports"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 180, Green: 30, Blue: 30}
)

var stateLabels = map[string]string{
	"PENDING":  "PENDIENTE",
	"APPROVED": "APROBADA",
	"REJECTED": "RECHAZADA",
	"RETURNED": "DEVUELTA",
}

var _ ports.SlipGenerator = (*MarotoSlipGenerator)(nil)

// MarotoSlipGenerator implementa ports.SlipGenerator usando Maroto v2.
type MarotoSlipGenerator struct {
	institution string
}

// NewMarotoSlipGenerator construye el generador. institution encabeza el comprobante.
func NewMarotoSlipGenerator(institution string) *MarotoSlipGenerator {
	return &MarotoSlipGenerator{institution: institution}
}

// GenerateSlip genera el PDF y devuelve sus bytes.
func (g *MarotoSlipGenerator) GenerateSlip(_ context.Context, req *dto.BorrowRequestResponse) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).WithRightMargin(12).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Comprobante de préstamo "+req.ID, true).
		WithAuthor(g.institution, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(req))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(requesterRow(req))
	m.AddRows(datesRow(req))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableLineRows(req.Lines)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(req))
	if r := decisionRow(req); r != nil {
		m.AddRows(r)
	}

	m.AddRows(row.New(12))
	m.AddRows(signatureRow(req))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar comprobante: %w", err)
	}
	return doc.GetBytes(), nil
}

func (g *MarotoSlipGenerator) headerRow(req *dto.BorrowRequestResponse) core.Row {
	state := stateLabels[req.State]
	if req.Overdue {
		state += " - VENCIDA"
	}
	stateColor := colorPrimary
	if req.Overdue {
		stateColor = colorAlert
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(g.institution, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("COMPROBANTE DE PRÉSTAMO DE EQUIPOS", props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("Solicitud", props.Text{Size: 8, Align: align.Right, Color: colorGray, Top: 1}),
			text.New(req.ID, props.Text{Style: fontstyle.Bold, Size: 7, Align: align.Right, Top: 6}),
			text.New(state, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 12, Color: stateColor}),
		),
	)
}

func requesterRow(req *dto.BorrowRequestResponse) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("SOLICITANTE", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(nonEmpty(req.RequesterName, req.RequesterID), props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(fmt.Sprintf("N° empleado: %s   |   Dependencia: %s",
				nonEmpty(req.EmployeeNumber, "-"),
				nonEmpty(req.DepartmentID, "-"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func datesRow(req *dto.BorrowRequestResponse) core.Row {
	field := func(label, value string) core.Col {
		return col.New(4).Add(
			text.New(label, props.Text{Size: 7, Color: colorGray, Top: 1}),
			text.New(value, props.Text{Style: fontstyle.Bold, Size: 9, Top: 5}),
		)
	}
	return row.New(12).Add(
		field("Fecha de préstamo", req.BorrowDate),
		field("Fecha de devolución", req.ReturnDate),
		field("Vence", req.DueAt.Format("02/01/2006 15:04")),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("#", 1, align.Center),
		h("Código", 2, align.Left),
		h("Descripción", 5, align.Left),
		h("Cant.", 1, align.Center),
		h("Observación", 3, align.Left),
	)
}

func tableLineRows(lines []dto.BorrowLineResponse) []core.Row {
	result := make([]core.Row, 0, len(lines))
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 8, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	for _, l := range lines {
		result = append(result, row.New(7).Add(
			cell(strconv.Itoa(l.LineNo), 1, align.Center),
			cell(nonEmpty(l.ItemCode, l.ItemID), 2, align.Left),
			cell(l.ItemName, 5, align.Left),
			cell(strconv.FormatInt(l.Quantity, 10), 1, align.Center),
			cell(l.Remark, 3, align.Left),
		))
	}
	return result
}

func totalRow(req *dto.BorrowRequestResponse) core.Row {
	return row.New(8).Add(
		col.New(8),
		col.New(4).Add(text.New(
			fmt.Sprintf("Total unidades: %d", req.TotalQuantity),
			props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 2, Right: 1},
		)),
	)
}

// decisionRow nil mientras la solicitud está pendiente.
func decisionRow(req *dto.BorrowRequestResponse) core.Row {
	if req.DecidedAt == nil {
		return nil
	}
	detail := fmt.Sprintf("Decidida por %s el %s", req.DecidedBy, req.DecidedAt.Format("02/01/2006 15:04"))
	if req.DecisionReason != "" {
		detail += ". Motivo: " + req.DecisionReason
	}
	if req.ReturnedAt != nil {
		detail += fmt.Sprintf(". Devuelta el %s", req.ReturnedAt.Format("02/01/2006 15:04"))
	}
	return row.New(8).Add(col.New(12).Add(
		text.New(detail, props.Text{Size: 8, Color: colorGray, Top: 2}),
	))
}

func signatureRow(req *dto.BorrowRequestResponse) core.Row {
	sign := func(label string) core.Col {
		return col.New(4).Add(
			text.New("______________________________", props.Text{Size: 8, Align: align.Center, Top: 18}),
			text.New(label, props.Text{Size: 8, Align: align.Center, Top: 23, Color: colorGray}),
		)
	}
	return row.New(32).Add(
		sign("Firma solicitante"),
		sign("Firma almacén"),
		col.New(4).Add(code.NewQr(req.ID, props.Rect{Percent: 90, Center: true})),
	)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
