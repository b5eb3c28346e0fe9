// Package intent turns raw chat text into a structured command. It does no
// I/O; product tokens are resolved against the catalog by the caller.
package intent

import (
	"fmt"
	"strconv"
	"strings"

	"orderbot/internal/domain"
)

type Kind int

const (
	Unrecognized Kind = iota
	PlaceOrder
	CheckStatus
	ListCatalog
)

// ItemRequest is one "rice 2" clause of an order command. The token is still
// free text at this point.
type ItemRequest struct {
	Token    string
	Quantity int
}

type Command struct {
	Kind    Kind
	Items   []ItemRequest // PlaceOrder
	OrderID string        // CheckStatus
}

// Parse interprets the command grammar:
//
//	order <name> [qty][, <name> [qty]]...
//	status <order-id>
//	list
//
// Keywords are matched case-insensitively after trimming; tokens keep their
// original casing (order ids are case-sensitive). A "status" command with no
// id is a validation error, not an unrecognized command.
func Parse(text string) (Command, error) {
	t := strings.TrimSpace(text)
	lower := strings.ToLower(t)

	switch {
	case strings.HasPrefix(lower, "order"):
		return Command{Kind: PlaceOrder, Items: parseItems(t[len("order"):])}, nil

	case strings.HasPrefix(lower, "status"):
		fields := strings.Fields(t)
		if len(fields) < 2 {
			return Command{}, fmt.Errorf("%w: usage: status <order-id>", domain.ErrValidation)
		}
		return Command{Kind: CheckStatus, OrderID: fields[1]}, nil

	case lower == "list":
		return Command{Kind: ListCatalog}, nil
	}
	return Command{Kind: Unrecognized}, nil
}

// parseItems splits the remainder of an order command on commas; each clause
// is "<token> [qty]". A missing or non-numeric quantity defaults to 1, and
// empty clauses are dropped rather than failing the whole command.
func parseItems(rest string) []ItemRequest {
	var items []ItemRequest
	for _, clause := range strings.Split(rest, ",") {
		fields := strings.Fields(clause)
		if len(fields) == 0 {
			continue
		}
		qty := 1
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil {
				qty = n
			}
		}
		items = append(items, ItemRequest{Token: fields[0], Quantity: qty})
	}
	return items
}
