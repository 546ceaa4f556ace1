package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var ErrMissingReference = errors.New("voucher reference is required")

// VoucherData is everything printed on a booking voucher. Amounts arrive
// already formatted.
type VoucherData struct {
	CompanyName   string
	Reference     string
	IssuedAt      string
	MemberName    string
	MemberEmail   string
	Tier          string
	Title         string
	ScheduledDate string
	Status        string
	PaymentStatus string

	Lines []VoucherLine

	Total       string
	Discount    string
	Reason      string
	BankDetails []string
	Notes       []string
}

type VoucherLine struct {
	Description string
	Amount      string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateVoucher(ctx context.Context, v VoucherData) (io.Reader, error) {
	if strings.TrimSpace(v.Reference) == "" {
		return nil, ErrMissingReference
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(15,
		text.NewCol(8, v.CompanyName, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Booking voucher", props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Reference: "+v.Reference, props.Text{Top: 0}),
			text.New("Issued: "+v.IssuedAt, props.Text{Top: 4}),
			text.New("Status: "+v.Status, props.Text{Top: 8}),
			text.New("Payment: "+v.PaymentStatus, props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New(v.MemberName, props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(v.MemberEmail, props.Text{Top: 4, Align: align.Right}),
			text.New("Plan: "+v.Tier, props.Text{Top: 8, Align: align.Right}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, v.Title+" - "+v.ScheduledDate, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(9, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range v.Lines {
		m.AddRow(8,
			text.NewCol(9, line.Description, props.Text{Size: 9}),
			text.NewCol(3, line.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	if v.Discount != "" {
		m.AddRow(8,
			col.New(6),
			text.NewCol(3, "Discount", props.Text{Size: 9}),
			text.NewCol(3, v.Discount, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Total", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(3, v.Total, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)
	if v.Reason != "" {
		m.AddRow(8, text.NewCol(12, v.Reason, props.Text{Size: 8, Style: fontstyle.Italic}))
	}

	if len(v.BankDetails) > 0 {
		m.AddRow(10, text.NewCol(12, "Bank transfer", props.Text{Style: fontstyle.Bold, Size: 10, Top: 3}))
		for _, line := range v.BankDetails {
			m.AddRow(5, text.NewCol(12, line, props.Text{Size: 9}))
		}
	}
	for _, note := range v.Notes {
		m.AddRow(6, text.NewCol(12, note, props.Text{Size: 8}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
