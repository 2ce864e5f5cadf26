package email

import (
	"bytes"
	"fmt"
	"html/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// OrderItem represents an item in an order for email purposes
type OrderItem struct {
	Name     string
	UnitType string
	Quantity int
	Price    int
}

// Order is the data of an order confirmation
type Order struct {
	ID              string
	CustomerName    string
	Items           []OrderItem
	Total           int
	ShippingAddress string
}

// StockAlert is the data of a low-stock alert
type StockAlert struct {
	ProductID     string
	ProductName   string
	UnitType      string
	StockQuantity int
	MinStockLevel int
	Status        string
}

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatMoney renders an amount in minor units, e.g. 123450 as "$1,234.50"
func FormatMoney(minor int) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return sign + "$" + printer.Sprintf("%d", minor/100) + fmt.Sprintf(".%02d", minor%100)
}

func statusLabel(status string) string {
	switch status {
	case "out_of_stock":
		return "out of stock"
	case "low_stock":
		return "low on stock"
	}
	return status
}

var funcs = template.FuncMap{
	"money":    FormatMoney,
	"subtotal": func(i OrderItem) string { return FormatMoney(i.Price * i.Quantity) },
	"status":   statusLabel,
}

var orderConfirmationTmpl = template.Must(template.New("order").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 22px; color: #2f7d32;">Thank you for your order{{if .CustomerName}}, {{.CustomerName}}{{end}}</h1>
	<p>Order number <strong style="font-family: monospace;">{{.ID}}</strong></p>
	<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
		<thead>
			<tr style="background: #f4f8f4;">
				<th style="padding: 10px; text-align: left;">Item</th>
				<th style="padding: 10px; text-align: center;">Qty</th>
				<th style="padding: 10px; text-align: right;">Price</th>
				<th style="padding: 10px; text-align: right;">Subtotal</th>
			</tr>
		</thead>
		<tbody>
		{{- range .Items}}
			<tr>
				<td style="padding: 10px; border-bottom: 1px solid #eee;">{{.Name}} ({{.UnitType}})</td>
				<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: center;">{{.Quantity}}</td>
				<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">{{money .Price}}</td>
				<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">{{subtotal .}}</td>
			</tr>
		{{- end}}
		</tbody>
	</table>
	<p style="text-align: right; font-size: 18px;">Total <strong>{{money .Total}}</strong></p>
	{{if .ShippingAddress}}<p>Delivering to: {{.ShippingAddress}}</p>{{end}}
	<p style="font-size: 12px; color: #999;">This email was sent automatically.</p>
</body>
</html>`))

var lowStockTmpl = template.Must(template.New("stock").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #333;">
	<h1 style="font-size: 20px; color: #c62828;">{{.ProductName}} ({{.UnitType}}) is {{status .Status}}</h1>
	<p>Available: <strong>{{.StockQuantity}}</strong>, minimum level: {{.MinStockLevel}}.</p>
	<p>Product ID <code>{{.ProductID}}</code>. Consider raising a purchase order.</p>
</body>
</html>`))

// BuildOrderConfirmationBody builds the HTML body for order confirmation email
func BuildOrderConfirmationBody(o Order) (string, error) {
	var buf bytes.Buffer
	if err := orderConfirmationTmpl.Execute(&buf, o); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildLowStockAlertBody builds the HTML body of a stock alert
func BuildLowStockAlertBody(a StockAlert) (string, error) {
	var buf bytes.Buffer
	if err := lowStockTmpl.Execute(&buf, a); err != nil {
		return "", err
	}
	return buf.String(), nil
}
