package services

import (
	"errors"
	"strings"

	"orderbot/internal/domain"
	"orderbot/internal/intent"
	applog "orderbot/internal/log"
	"orderbot/internal/repos"
)

// Gateway transmits a reply to the chat provider. Retries and backoff are the
// gateway's own concern; the pipeline only observes success or failure.
type Gateway interface {
	Send(to, body string) error
}

// Outcome of ingesting one webhook delivery.
type Outcome int

const (
	Accepted Outcome = iota
	DuplicateSkipped
)

// IngestService is the webhook ingestion gate: it deduplicates deliveries
// through the idempotency ledger, runs the command pipeline, and dispatches
// exactly one reply per distinct message.
type IngestService struct {
	Msgs    *repos.MessageRepo
	Catalog *CatalogService
	Orders  *OrderService
	Gateway Gateway
}

func NewIngestService(msgs *repos.MessageRepo, catalog *CatalogService, orders *OrderService, gw Gateway) *IngestService {
	return &IngestService{Msgs: msgs, Catalog: catalog, Orders: orders, Gateway: gw}
}

// Handle processes one inbound message. Claiming the ledger row up front is
// what makes concurrent redeliveries safe: only the claiming caller runs the
// pipeline, the others replay the cached reply (or stay silent while the
// first attempt is still in flight). A store failure releases the claim so
// the provider's redelivery can try again; no order side effect has happened
// by that point or the reply would have been cached.
func (s *IngestService) Handle(from, messageID, text string) (Outcome, error) {
	claimed, err := s.Msgs.Claim(messageID)
	if err != nil {
		return 0, err
	}
	if !claimed {
		reply, ok, err := s.Msgs.CachedReply(messageID)
		if err != nil {
			return 0, err
		}
		if ok {
			s.send(from, reply)
		}
		applog.Info(nil, "webhook.duplicate", map[string]any{"message_id": messageID, "replayed": ok})
		return DuplicateSkipped, nil
	}

	reply, err := s.dispatch(from, text)
	if err != nil {
		if relErr := s.Msgs.Release(messageID); relErr != nil {
			applog.Error(nil, "ledger.release", relErr, map[string]any{"message_id": messageID})
		}
		return 0, err
	}

	if err := s.Msgs.SaveReply(messageID, reply); err != nil {
		// The command already ran; losing the cache only costs replay.
		applog.Error(nil, "ledger.save_reply", err, map[string]any{"message_id": messageID})
	}
	s.send(from, reply)
	return Accepted, nil
}

// dispatch runs the parsed command and maps every user-reachable outcome to a
// reply string. The returned error is non-nil only for store failures.
func (s *IngestService) dispatch(from, text string) (string, error) {
	cmd, err := intent.Parse(text)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return "Usage: status <order-id>", nil
		}
		return "", err
	}

	switch cmd.Kind {
	case intent.PlaceOrder:
		return s.placeOrder(from, cmd.Items)

	case intent.CheckStatus:
		v, err := s.Orders.Status(cmd.OrderID)
		if errors.Is(err, domain.ErrNotFound) {
			return orderNotFound, nil
		}
		if err != nil {
			return "", err
		}
		return formatStatus(v), nil

	case intent.ListCatalog:
		products, err := s.Catalog.List()
		if err != nil {
			return "", err
		}
		return formatCatalog(products), nil
	}
	return helpReply, nil
}

func (s *IngestService) placeOrder(from string, reqs []intent.ItemRequest) (string, error) {
	var lines []ResolvedLine
	var skipped []SkippedLine
	byProduct := map[string]int{} // product id -> index in lines

	for _, req := range reqs {
		p, err := s.Catalog.Resolve(req.Token)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			skipped = append(skipped, SkippedLine{Name: req.Token, Reason: ReasonNotFound})
			continue
		case errors.Is(err, domain.ErrAmbiguousProduct):
			skipped = append(skipped, SkippedLine{Name: req.Token, Reason: ReasonAmbiguous})
			continue
		case err != nil:
			return "", err
		}
		// The same product twice in one command collapses into one line.
		if i, ok := byProduct[p.ID]; ok {
			lines[i].Quantity += req.Quantity
			continue
		}
		byProduct[p.ID] = len(lines)
		lines = append(lines, ResolvedLine{Product: p, Quantity: req.Quantity})
	}

	placement, err := s.Orders.Place(from, lines)
	placement.Skipped = append(skipped, placement.Skipped...)

	if errors.Is(err, domain.ErrNoValidItems) {
		var b strings.Builder
		b.WriteString(noValidItemsReply)
		appendSkipped(&b, placement.Skipped)
		return b.String(), nil
	}
	if err != nil {
		// The decrement race was already retried inside Place; anything left
		// is a store failure the user can only be told about generically.
		applog.Error(nil, "order.place.fail", err, map[string]any{"customer": from})
		return orderFailedReply, nil
	}

	applog.Audit(nil, "order.place", map[string]any{
		"order_id": placement.Order.ID,
		"customer": from,
		"total":    placement.Order.Total,
		"items":    len(placement.Items),
		"skipped":  len(placement.Skipped),
	})
	return formatConfirmation(placement), nil
}

// send hands the reply to the gateway; transport failures are logged, never
// surfaced to the pipeline (the gateway owns its retries).
func (s *IngestService) send(to, body string) {
	if err := s.Gateway.Send(to, body); err != nil {
		applog.Error(nil, "gateway.send", err, map[string]any{"to": to})
	}
}
