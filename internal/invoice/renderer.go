// Package invoice dessine la facture PDF d'une commande.
//
// Le rendu est une fonction pure de la commande : deux appels sur la même
// commande produisent exactement les mêmes octets.
package invoice

import (
	"bytes"
	"fmt"
	"strings"

	"threadsntrends_back_end/internal/models"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

const (
	pageHeight   = 297.0
	margin       = 15.0
	bottomMargin = 45.0
	lineHeight   = 6.0
	headerHeight = 8.0
	qrSize       = 30.0
)

type column struct {
	title string
	width float64
	align string
}

var columns = []column{
	{"No.", 12, "C"},
	{"Item", 70, "L"},
	{"Size", 20, "C"},
	{"Qty", 16, "C"},
	{"Price (PKR)", 31, "R"},
	{"Total (PKR)", 31, "R"},
}

type Renderer struct {
	ShopName    string
	ShopEmail   string
	TrackingURL string
}

func NewRenderer(shopName, shopEmail, frontendURL string) *Renderer {
	return &Renderer{
		ShopName:    shopName,
		ShopEmail:   shopEmail,
		TrackingURL: strings.TrimRight(frontendURL, "/") + "/track/",
	}
}

// Filename est le nom proposé au téléchargement et en pièce jointe.
func Filename(orderID string) string {
	return fmt.Sprintf("invoice-%s.pdf", orderID)
}

func (r *Renderer) Render(order models.Order) ([]byte, error) {
	pdf, err := r.build(order)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("écriture du PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) build(order models.Order) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(order.CreatedAt)
	pdf.SetModificationDate(order.CreatedAt)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(true)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Invoice "+order.OrderID, true)
	pdf.SetAuthor(r.ShopName, true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	r.header(pdf, order)
	r.billTo(pdf, tr, order)
	r.table(pdf, tr, order)
	r.totals(pdf, order)
	if err := r.qr(pdf, order); err != nil {
		return nil, err
	}
	return pdf, pdf.Error()
}

func (r *Renderer) header(pdf *fpdf.Fpdf, order models.Order) {
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(100, 10, r.ShopName, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(100, 5, r.ShopEmail, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Invoice #: "+order.OrderID, "", 1, "R", false, 0, "")
	pdf.CellFormat(100, 5, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Date: "+order.CreatedAt.Format("02 Jan 2006"), "", 1, "R", false, 0, "")
	pdf.Ln(6)
}

func (r *Renderer) billTo(pdf *fpdf.Fpdf, tr func(string) string, order models.Order) {
	a := order.BillingAddress
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, "Bill To", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)

	lines := []string{
		order.CustomerName,
		order.CustomerEmail,
		strings.TrimSpace(a.Address + " " + a.Apartment),
		strings.TrimSpace(strings.Join(nonEmpty(a.City, a.State, a.PostalCode), ", ")),
		a.Phone,
	}
	for _, l := range lines {
		if l == "" {
			continue
		}
		pdf.CellFormat(0, 5, tr(l), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (r *Renderer) tableHeader(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, headerHeight, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
}

func (r *Renderer) table(pdf *fpdf.Fpdf, tr func(string) string, order models.Order) {
	r.tableHeader(pdf)
	itemWidth := columns[1].width

	for i, p := range order.Products {
		names := pdf.SplitText(tr(p.Name), itemWidth-2)
		if len(names) == 0 {
			names = []string{""}
		}
		rowHeight := lineHeight * float64(len(names))

		if pdf.GetY()+rowHeight > pageHeight-bottomMargin {
			pdf.AddPage()
			r.tableHeader(pdf)
		}

		price := decimal.NewFromFloat(p.Price)
		lineTotal := price.Mul(decimal.NewFromInt(p.Quantity))
		cells := []string{
			fmt.Sprintf("%d", i+1),
			"",
			tr(p.Size),
			fmt.Sprintf("%d", p.Quantity),
			price.StringFixed(2),
			lineTotal.StringFixed(2),
		}

		x, y := pdf.GetXY()
		for ci, c := range columns {
			pdf.Rect(x, y, c.width, rowHeight, "D")
			if ci == 1 {
				for li, name := range names {
					pdf.SetXY(x+1, y+float64(li)*lineHeight)
					pdf.CellFormat(c.width-2, lineHeight, name, "", 0, "L", false, 0, "")
				}
			} else {
				pdf.SetXY(x, y)
				pdf.CellFormat(c.width, rowHeight, cells[ci], "", 0, c.align, false, 0, "")
			}
			x += c.width
		}
		pdf.SetXY(margin, y+rowHeight)
	}
	pdf.Ln(4)
}

func (r *Renderer) totals(pdf *fpdf.Fpdf, order models.Order) {
	if pdf.GetY()+40 > pageHeight-margin {
		pdf.AddPage()
	}
	total := decimal.NewFromFloat(order.TotalAmount)
	shipping := decimal.NewFromFloat(order.ShippingCost)
	subtotal := total.Sub(shipping)

	labelWidth, valueWidth := 40.0, 31.0
	offset := 180 - labelWidth - valueWidth
	rows := []struct {
		label string
		value decimal.Decimal
		bold  bool
	}{
		{"Subtotal", subtotal, false},
		{"Shipping", shipping, false},
		{"Total (PKR)", total, true},
	}
	for _, row := range rows {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.SetX(margin + offset)
		pdf.CellFormat(labelWidth, lineHeight, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(valueWidth, lineHeight, row.value.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, "Payment method: "+paymentLabel(order.PaymentMethod), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Status: "+string(order.Status), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Terms: goods once delivered can be exchanged within 7 days with this invoice.", "", 1, "L", false, 0, "")
}

func (r *Renderer) qr(pdf *fpdf.Fpdf, order models.Order) error {
	png, err := qrcode.Encode(r.TrackingURL+order.OrderID, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("génération du QR code: %w", err)
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	name := "qr-" + order.OrderID
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))

	y := pdf.GetY() + 4
	if y+qrSize > pageHeight-margin {
		pdf.AddPage()
		y = margin
	}
	pdf.ImageOptions(name, 210-margin-qrSize, y, qrSize, qrSize, false, opts, 0, "")
	pdf.SetXY(margin, y+qrSize/2)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 5, "Scan to track your order "+order.OrderID, "", 1, "L", false, 0, "")
	return nil
}

func paymentLabel(m models.PaymentMethod) string {
	switch m {
	case models.PaymentCOD:
		return "Cash on delivery"
	case models.PaymentCard:
		return "Card (Stripe)"
	default:
		return string(m)
	}
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
