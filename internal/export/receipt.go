package export

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/models"
)

const receiptDateLayout = "Jan 2, 2006 03:04 PM"

// ReceiptOptions carries shop-level settings for the printed receipt.
type ReceiptOptions struct {
	ShopName       string
	CurrencySymbol string
	Location       *time.Location
}

type receiptLine struct {
	Name      string
	Quantity  int
	Size      string
	AddOns    string
	UnitPrice string
	Subtotal  string
}

type receiptView struct {
	ShopName   string
	ShortID    string
	Customer   string
	Contact    string
	Service    string
	Table      string
	Address    string
	PickupTime string
	Items      []receiptLine
	Reference  string
	Notes      string
	Total      string
	Date       string
	Status     string
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Receipt - Order #{{.ShortID}}</title>
  <style>
    @media print {
      @page { size: 80mm auto; margin: 0; }
      body { margin: 0; padding: 10mm; }
    }
    body { font-family: 'Courier New', monospace; font-size: 12px; width: 80mm; margin: 0 auto; padding: 10px; line-height: 1.4; }
    .header { text-align: center; border-bottom: 1px dashed #000; padding-bottom: 10px; margin-bottom: 10px; }
    .header h1 { font-size: 18px; margin: 5px 0; text-transform: uppercase; }
    .divider { border-top: 1px dashed #000; margin: 10px 0; }
    .row { display: flex; justify-content: space-between; }
    .item-details { font-size: 10px; padding-left: 8px; }
    .item-price { text-align: right; }
    .total { font-size: 14px; font-weight: bold; text-align: right; }
    .footer { text-align: center; font-size: 10px; margin-top: 10px; }
  </style>
</head>
<body>
  <div class="header">
    <h1>{{.ShopName}}</h1>
    <p>Order Receipt</p>
  </div>
  <div class="order-id">Order #{{.ShortID}}</div>
  <div class="section">
    <div class="row"><span>Name:</span><span>{{.Customer}}</span></div>
    {{- if .Contact}}
    <div class="row"><span>Contact:</span><span>{{.Contact}}</span></div>
    {{- end}}
    <div class="row"><span>Service:</span><span>{{.Service}}</span></div>
    {{- if .Table}}
    <div class="row"><span>Table:</span><span>{{.Table}}</span></div>
    {{- end}}
    {{- if .Address}}
    <div class="row"><span>Address:</span><span>{{.Address}}</span></div>
    {{- end}}
    {{- if .PickupTime}}
    <div class="row"><span>Pickup Time:</span><span>{{.PickupTime}}</span></div>
    {{- end}}
  </div>
  <div class="divider"></div>
  <div class="items">
    {{- range .Items}}
    <div class="item">
      <div class="item-name">{{.Name}} x{{.Quantity}}</div>
      {{- if .Size}}
      <div class="item-details">Size: {{.Size}}</div>
      {{- end}}
      {{- if .AddOns}}
      <div class="item-details">Add-ons: {{.AddOns}}</div>
      {{- end}}
      <div class="item-price">{{.UnitPrice}} x {{.Quantity}} = {{.Subtotal}}</div>
    </div>
    {{- end}}
  </div>
  <div class="divider"></div>
  {{- if .Reference}}
  <div class="row"><span>Reference #:</span><span>{{.Reference}}</span></div>
  {{- end}}
  {{- if .Notes}}
  <div class="row"><span>Notes:</span><span>{{.Notes}}</span></div>
  {{- end}}
  <div class="total">TOTAL: {{.Total}}</div>
  <div class="footer">
    <div>Date: {{.Date}}</div>
    <div>Status: {{.Status}}</div>
    <div>Thank you for your order!</div>
  </div>
</body>
</html>
`))

// Receipt renders an 80 mm thermal receipt for o.
func Receipt(w io.Writer, o models.Order, opts ReceiptOptions) error {
	if err := receiptTemplate.Execute(w, newReceiptView(o, opts)); err != nil {
		return fmt.Errorf("failed to render receipt for order %s: %w", o.ID, err)
	}
	return nil
}

// FlattenAddOns renders add-ons as "Name" or "Name xN" joined by commas.
func FlattenAddOns(addOns []models.AddOnSnapshot) string {
	parts := make([]string, 0, len(addOns))
	for _, a := range addOns {
		if a.Quantity > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d", a.Name, a.Quantity))
			continue
		}
		parts = append(parts, a.Name)
	}
	return strings.Join(parts, ", ")
}

func newReceiptView(o models.Order, opts ReceiptOptions) receiptView {
	money := func(d decimal.Decimal) string { return opts.CurrencySymbol + d.StringFixed(2) }
	created := o.CreatedAt
	if opts.Location != nil {
		created = created.In(opts.Location)
	}

	v := receiptView{
		ShopName:   opts.ShopName,
		ShortID:    ShortID(o.ID),
		Customer:   o.CustomerName,
		Contact:    o.ContactNumber,
		Service:    ServiceLabel(o.ServiceType),
		Table:      deref(o.TableNumber),
		Address:    deref(o.Address),
		PickupTime: deref(o.PickupTime),
		Reference:  deref(o.ReferenceNumber),
		Notes:      deref(o.Notes),
		Total:      money(o.Total),
		Date:       created.Format(receiptDateLayout),
		Status:     strings.ToUpper(string(o.Status)),
	}
	for _, item := range o.Items {
		line := receiptLine{
			Name:      item.Name,
			Quantity:  item.Quantity,
			AddOns:    FlattenAddOns(item.AddOns),
			UnitPrice: money(item.UnitPrice),
			Subtotal:  money(item.Subtotal),
		}
		if item.Variation != nil {
			line.Size = item.Variation.Name
		}
		v.Items = append(v.Items, line)
	}
	return v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
