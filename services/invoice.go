package services

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/velmart/storefront-api/models"
)

// invoiceTmpl renders the order confirmation document attached to the
// confirmation mail.
var invoiceTmpl = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Invoice {{.Reference}}</title></head>
<body>
  <h1>Invoice {{.Reference}}</h1>
  <p>Order date: {{.CreatedAt.Format "2006-01-02"}}</p>
  <p>Shipping address: {{.ShippingAddress}}</p>
  <p>Billing address: {{.BillingAddress}}</p>
  <table border="1" cellpadding="4" cellspacing="0">
    <tr><th>Product</th><th>Unit price</th><th>Qty</th><th>Subtotal</th></tr>
    {{range .Items}}
    <tr>
      <td>{{.ProductName}}</td>
      <td>{{.Price.StringFixed 2}}</td>
      <td>{{.Quantity}}</td>
      <td>{{.Subtotal.StringFixed 2}}</td>
    </tr>
    {{end}}
  </table>
  <p><strong>Total: {{.TotalAmount.StringFixed 2}}</strong></p>
</body>
</html>
`))

// RenderInvoice produces the HTML invoice document for a finalized order.
func RenderInvoice(order models.Order) ([]byte, error) {
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, order); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", order.Reference, err)
	}
	return buf.Bytes(), nil
}
