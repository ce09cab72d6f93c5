package orders

import (
	"context"

	"dinewire/internal/catalog"
	"dinewire/internal/domain"
)

// ParsedItem is one item the text-parsing collaborator extracted.
type ParsedItem struct {
	MenuItemID string
	Quantity   int
	Notes      string
}

// ParsedOrder is the collaborator's view of an utterance.
type ParsedOrder struct {
	Items []ParsedItem
	Notes string
}

// TextParser is the optional LLM/NLP collaborator for order-creation text.
// It enriches extraction; it is never on the critical path. Any failure
// falls back to the rule-based matcher.
type TextParser interface {
	ParseOrderText(ctx context.Context, text string, menu []domain.MenuItem) (ParsedOrder, error)
}

// CreateFromText creates an order from free text. Item extraction prefers
// the collaborator, degrades to the matcher, and never blocks creation:
// a text with no resolvable items still creates an empty order, with the
// unresolved clauses reported back.
func (s *Service) CreateFromText(ctx context.Context, text string, in CreateInput) (*domain.Order, []string, error) {
	menu, err := s.store.MenuItems.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	items := make([]domain.MenuItem, 0, len(menu))
	for _, m := range menu {
		items = append(items, *m)
	}

	var unresolved []string
	if s.parser != nil {
		parsed, perr := s.parser.ParseOrderText(ctx, text, items)
		if perr == nil {
			for _, it := range parsed.Items {
				in.Items = append(in.Items, ItemInput{MenuItemID: it.MenuItemID, Quantity: it.Quantity, Notes: it.Notes})
			}
			order, err := s.Create(ctx, in)
			return order, nil, err
		}
		s.log.Error("text_parser_failed", perr, map[string]any{"fallback": "matcher"})
	}

	res := catalog.MatchText(text, items)
	for _, m := range res.Matches {
		in.Items = append(in.Items, ItemInput{MenuItemID: m.Item.ID, Quantity: m.Quantity})
	}
	unresolved = res.Unresolved

	order, err := s.Create(ctx, in)
	if err != nil {
		return nil, unresolved, err
	}
	return order, unresolved, nil
}
