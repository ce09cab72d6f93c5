package orders

import (
	"context"
	"fmt"

	"dinewire/internal/domain"
	"dinewire/internal/interpret"
)

// Outcome is what the originating channel hears back after a free-text
// command has been interpreted and executed.
type Outcome struct {
	Intent     string        `json:"intent"`
	Order      *domain.Order `json:"order,omitempty"`
	Unresolved []string      `json:"unresolved_items,omitempty"`
	Message    string        `json:"message"`
}

// ExecuteText runs the full ingestion path: interpret the utterance against
// a snapshot of current orders and the menu, then apply the intent on the
// aggregate. Interpretation never guesses; aggregate errors come back typed
// so the channel can surface them.
func (s *Service) ExecuteText(ctx context.Context, text string, channel domain.Channel, channelAddr string) (Outcome, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return Outcome{}, err
	}

	intent := interpret.Interpret(text, snap)
	switch {
	case intent.Create != nil:
		var table *string
		if intent.Create.Table != "" {
			t := intent.Create.Table
			table = &t
		}
		order, unresolved, err := s.CreateFromText(ctx, intent.Create.Text, CreateInput{
			Table:       table,
			Channel:     channel,
			ChannelAddr: channelAddr,
		})
		if err != nil {
			return Outcome{Intent: "create_order"}, err
		}
		return Outcome{
			Intent:     "create_order",
			Order:      order,
			Unresolved: unresolved,
			Message:    fmt.Sprintf("order %s created", order.OrderNumber),
		}, nil

	case intent.ChangeStatus != nil:
		order, err := s.GetByRef(ctx, intent.ChangeStatus.OrderRef)
		if err != nil {
			return Outcome{Intent: "change_status"}, err
		}
		updated, err := s.SetStatus(ctx, order.ID, intent.ChangeStatus.TargetStatus)
		if err != nil {
			return Outcome{Intent: "change_status", Order: order}, err
		}
		return Outcome{
			Intent:  "change_status",
			Order:   updated,
			Message: fmt.Sprintf("order %s is now %s", updated.OrderNumber, updated.Status),
		}, nil

	case intent.Delete != nil:
		order, err := s.GetByRef(ctx, intent.Delete.OrderRef)
		if err != nil {
			return Outcome{Intent: "delete_order"}, err
		}
		if err := s.Delete(ctx, order.ID); err != nil {
			return Outcome{Intent: "delete_order", Order: order}, err
		}
		return Outcome{
			Intent:  "delete_order",
			Message: fmt.Sprintf("order %s deleted", order.OrderNumber),
		}, nil

	default:
		return Outcome{
			Intent:  "unrecognized",
			Message: "could not understand the request: " + intent.Unrecognized.RawText,
		}, nil
	}
}

func (s *Service) snapshot(ctx context.Context) (interpret.Context, error) {
	list, err := s.store.Orders.List(ctx)
	if err != nil {
		return interpret.Context{}, err
	}
	menu, err := s.store.MenuItems.List(ctx)
	if err != nil {
		return interpret.Context{}, err
	}

	snap := interpret.Context{}
	for _, o := range list {
		ref := interpret.OrderRef{OrderNumber: o.OrderNumber, CreatedAt: o.CreatedAt.UnixNano()}
		if o.TableNumber != nil {
			ref.TableNumber = *o.TableNumber
		}
		snap.Orders = append(snap.Orders, ref)
	}
	for _, m := range menu {
		snap.Catalog = append(snap.Catalog, *m)
	}
	return snap, nil
}
