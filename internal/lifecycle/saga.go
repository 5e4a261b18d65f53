package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"karavanCanteen/models"
)

// Step is a single unit of work in a creation saga. Each step has a compensating action
// to undo its effects.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// saga runs steps sequentially; on failure it compensates completed steps in reverse.
type saga struct {
	steps []Step
	log   *slog.Logger
}

func (s *saga) run(ctx context.Context) error {
	var done []Step
	for _, step := range s.steps {
		if err := step.Execute(ctx); err != nil {
			s.log.WarnContext(ctx, "saga step failed, compensating", "step", step.Name(), "err", err)
			s.rollback(ctx, done)
			return err
		}
		done = append(done, step)
	}
	return nil
}

func (s *saga) rollback(ctx context.Context, steps []Step) {
	// Compensation must run even if the caller's context is already cancelled.
	ctx = context.WithoutCancel(ctx)
	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i].Compensate(ctx); err != nil {
			s.log.ErrorContext(ctx, "compensation failed", "step", steps[i].Name(), "err", err)
		}
	}
}

// --- createOrderStep ---

type createOrderStep struct {
	store Store
	draft *models.Order
	saved *models.Order
}

func (s *createOrderStep) Name() string { return "create_order" }

func (s *createOrderStep) Execute(ctx context.Context) error {
	o, err := s.store.CreateOrder(ctx, s.draft)
	if err != nil {
		return err
	}
	s.saved = o
	return nil
}

func (s *createOrderStep) Compensate(ctx context.Context) error {
	if s.saved == nil {
		return nil
	}
	if err := s.store.Delete(ctx, s.saved.ID); err != nil {
		return fmt.Errorf("delete order %d: %w", s.saved.ID, err)
	}
	return nil
}

// --- createItemsStep ---

type createItemsStep struct {
	store Store
	order *createOrderStep
	items []models.OrderItem
	saved []models.OrderItem
}

func (s *createItemsStep) Name() string { return "create_order_items" }

func (s *createItemsStep) Execute(ctx context.Context) error {
	items, err := s.store.CreateOrderItems(ctx, s.order.saved.ID, s.items)
	if err != nil {
		return err
	}
	s.saved = items
	return nil
}

// Items go with their order, so compensating the order step is enough.
func (s *createItemsStep) Compensate(context.Context) error { return nil }
