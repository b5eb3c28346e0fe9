package services

import (
	"fmt"
	"strings"

	"orderbot/internal/domain"
)

// User-facing reply strings. Kept short: these land in a chat window.
const (
	helpReply         = "Send 'order rice 2' or 'status <id>'."
	noValidItemsReply = "No valid products found in your order."
	orderFailedReply  = "Could not process your order. Please try again."
	orderNotFound     = "Order not found with that ID."
)

func formatConfirmation(p Placement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order created!\nID: %s\nStatus: %s\nTotal: %.2f\nItems: %s",
		p.Order.ID, p.Order.Status, p.Order.Total, formatItems(p.Items))
	appendSkipped(&b, p.Skipped)
	return b.String()
}

func formatStatus(v domain.OrderView) string {
	return fmt.Sprintf("Order Status\nID: %s\nStatus: %s\nTotal: %.2f\nItems: %s",
		v.ID, v.Status, v.Total, formatItems(v.Items))
}

func formatCatalog(products []domain.Product) string {
	if len(products) == 0 {
		return "The catalog is empty right now."
	}
	var b strings.Builder
	b.WriteString("Catalog:")
	for _, p := range products {
		fmt.Fprintf(&b, "\n%s - %.2f (%d in stock)", p.Name, p.Price, p.Stock)
	}
	return b.String()
}

func formatItems(items []domain.OrderItem) string {
	if len(items) == 0 {
		return "none"
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%dx %s (%.2f)", it.Quantity, it.Name, float64(it.Quantity)*it.UnitPrice)
	}
	return strings.Join(parts, ", ")
}

func appendSkipped(b *strings.Builder, skipped []SkippedLine) {
	if len(skipped) == 0 {
		return
	}
	parts := make([]string, len(skipped))
	for i, s := range skipped {
		parts[i] = fmt.Sprintf("%s (%s)", s.Name, skipReasonText(s.Reason))
	}
	fmt.Fprintf(b, "\nSkipped: %s", strings.Join(parts, ", "))
}

func skipReasonText(reason string) string {
	switch reason {
	case ReasonNotFound:
		return "not found"
	case ReasonAmbiguous:
		return "name matches several products"
	case ReasonInsufficientStock:
		return "not enough stock"
	case ReasonInvalidQuantity:
		return "invalid quantity"
	}
	return reason
}
