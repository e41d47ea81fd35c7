package email

import (
	"strings"
	"testing"
)

func TestRenderOrderConfirmation(t *testing.T) {
	t.Parallel()

	subject, text, html, err := RenderOrderConfirmation(OrderInfo{
		OrderNumber:  "ORD-1724800000000-A1B2C3",
		CustomerName: "Asha",
		Items: []OrderLine{
			{Name: "Premium Football", Quantity: 2, UnitPrice: "₹899.00"},
		},
		Total:     "₹1798.00",
		OrderDate: "28 Aug 2026",
	})
	if err != nil {
		t.Fatalf("RenderOrderConfirmation: %v", err)
	}

	if !strings.Contains(subject, "ORD-1724800000000-A1B2C3") {
		t.Fatalf("subject missing order number: %q", subject)
	}
	for _, body := range []string{text, html} {
		if !strings.Contains(body, "Premium Football") {
			t.Fatalf("body missing item name: %q", body)
		}
		if !strings.Contains(body, "₹1798.00") {
			t.Fatalf("body missing total: %q", body)
		}
	}
}
