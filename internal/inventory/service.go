package inventory

import (
	"context"
	"log/slog"
	"strings"
)

// RepositoryPort is the persistence contract the service depends on.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateItemInput) (*Item, error)
	Get(ctx context.Context, profileID int64, id string) (*Item, error)
	List(ctx context.Context, req ListItemsRequest) ([]Item, error)
	Update(ctx context.Context, profileID int64, id string, input UpdateItemInput) (*Item, error)
	AdjustStock(ctx context.Context, profileID int64, id string, delta int, reason string) (*Item, error)
	ListAdjustments(ctx context.Context, profileID int64, itemID string, limit int) ([]Adjustment, error)
	Delete(ctx context.Context, profileID int64, id string) error
}

type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(ctx context.Context, input CreateItemInput) (*Item, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.SKU = strings.ToUpper(strings.TrimSpace(input.SKU))
	if input.Stock < 0 {
		input.Stock = 0
	}
	return s.repo.Create(ctx, input)
}

func (s *Service) Get(ctx context.Context, profileID int64, id string) (*Item, error) {
	return s.repo.Get(ctx, profileID, id)
}

func (s *Service) List(ctx context.Context, req ListItemsRequest) ([]Item, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) Update(ctx context.Context, profileID int64, id string, input UpdateItemInput) (*Item, error) {
	if input.SKU != nil {
		sku := strings.ToUpper(strings.TrimSpace(*input.SKU))
		input.SKU = &sku
	}
	return s.repo.Update(ctx, profileID, id, input)
}

// Adjust applies a signed stock movement. Negative deltas that exceed the
// current stock are rejected with ErrInsufficientStock.
func (s *Service) Adjust(ctx context.Context, profileID int64, id string, delta int, reason string) (*Item, error) {
	if delta == 0 {
		return nil, ErrInvalidDelta
	}
	item, err := s.repo.AdjustStock(ctx, profileID, id, delta, reason)
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock adjusted",
		slog.String("item_id", id),
		slog.Int("delta", delta),
		slog.Int("stock", item.Stock),
	)
	return item, nil
}

func (s *Service) Adjustments(ctx context.Context, profileID int64, itemID string, limit int) ([]Adjustment, error) {
	return s.repo.ListAdjustments(ctx, profileID, itemID, limit)
}

func (s *Service) Delete(ctx context.Context, profileID int64, id string) error {
	return s.repo.Delete(ctx, profileID, id)
}
