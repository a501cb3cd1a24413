// Package labels renders the printable Code128 label sheet for the tool
// crib. It is a read-only collaborator: it consumes Tool snapshots and
// never mutates inventory state.
//
// Page layout (A4, two labels per row):
//
//	┌──────────────────────────────────────────────┐
//	│              Barcode (Store)                 │
//	│  ┌────────────┐        ┌────────────┐        │
//	│  │ ║║│║║║│║║  │        │ ║║│║║║│║║  │        │
//	│  │   H100     │        │   W220     │        │
//	│  │   Hammer   │        │   Wrench   │        │
//	│  └────────────┘        └────────────┘        │
//	└──────────────────────────────────────────────┘
package labels

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/barcode"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/borrowmate/borrowmate/internal/domain"
)

const perRow = 2

// Sheet renders one Code128 label per tool and returns the PDF bytes.
func Sheet(tools []domain.Tool) ([]byte, error) {
	if len(tools) == 0 {
		return nil, fmt.Errorf("labels: no tools to render")
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).WithRightMargin(15).
		WithTopMargin(15).WithBottomMargin(15).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 10}).
		WithTitle("BorrowMate labels", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(row.New(12).Add(
		col.New(12).Add(text.New("Barcode (Store)", props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Center,
		})),
	))

	for i := 0; i < len(tools); i += perRow {
		m.AddRows(labelRow(tools[i:min(i+perRow, len(tools))]))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("labels: generate sheet: %w", err)
	}
	return doc.GetBytes(), nil
}

// labelRow lays out up to perRow labels side by side.
func labelRow(tools []domain.Tool) core.Row {
	r := row.New(34)
	for _, t := range tools {
		r.Add(col.New(12/perRow).Add(
			code.NewBar(t.Code, props.Barcode{
				Type:    barcode.Code128,
				Center:  true,
				Percent: 85,
				Top:     2,
			}),
			text.New(t.Code, props.Text{
				Top:   24,
				Size:  9,
				Align: align.Center,
			}),
			text.New(t.Name, props.Text{
				Top:   29,
				Size:  8,
				Align: align.Center,
			}),
		))
	}
	return r
}
