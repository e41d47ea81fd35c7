package email

// Package email provides email templates.

import (
	"bytes"
	"fmt"
	"text/template"
)

// OrderInfo carries the fields rendered into order emails.
type OrderInfo struct {
	OrderNumber  string
	CustomerName string
	Items        []OrderLine
	Total        string
	OrderDate    string
}

// OrderLine is a single item row in an order email.
type OrderLine struct {
	Name      string
	Quantity  int
	UnitPrice string
}

const orderConfirmationSubject = "Order Confirmed - {{.OrderNumber}} - KhelMart"

const orderConfirmationText = `Hi {{.CustomerName}},

Thanks for shopping with KhelMart! Your payment for order {{.OrderNumber}} has
been received and the order is confirmed.

Items:
{{range .Items}}  - {{.Name}} x{{.Quantity}} @ {{.UnitPrice}}
{{end}}
Total: {{.Total}}
Placed: {{.OrderDate}}

We'll let you know when it ships.

KhelMart
`

const orderConfirmationHTML = `<p>Hi {{.CustomerName}},</p>
<p>Thanks for shopping with KhelMart! Your payment for order
<strong>{{.OrderNumber}}</strong> has been received and the order is confirmed.</p>
<ul>
{{range .Items}}<li>{{.Name}} &times;{{.Quantity}} @ {{.UnitPrice}}</li>
{{end}}</ul>
<p><strong>Total:</strong> {{.Total}}<br>
<strong>Placed:</strong> {{.OrderDate}}</p>
<p>We'll let you know when it ships.</p>
<p>KhelMart</p>
`

// RenderOrderConfirmation renders the order confirmation email for the given
// order details.
func RenderOrderConfirmation(info OrderInfo) (subject, text, html string, err error) {
	subject, err = renderTemplate("subject", orderConfirmationSubject, info)
	if err != nil {
		return "", "", "", err
	}
	text, err = renderTemplate("text", orderConfirmationText, info)
	if err != nil {
		return "", "", "", err
	}
	html, err = renderTemplate("html", orderConfirmationHTML, info)
	if err != nil {
		return "", "", "", err
	}
	return subject, text, html, nil
}

func renderTemplate(name, content string, info OrderInfo) (string, error) {
	tmpl, err := template.New(name).Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, info); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return buf.String(), nil
}
