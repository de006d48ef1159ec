package products

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sariverse/sariverse/internal/shared"
)

// RepositoryPort is the persistence contract the service depends on.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateProductInput) (*Product, error)
	Get(ctx context.Context, profileID int64, id string) (*Product, error)
	List(ctx context.Context, req ListProductsRequest) ([]Product, error)
	Count(ctx context.Context, req ListProductsRequest) (int, error)
	Update(ctx context.Context, profileID int64, id string, input UpdateProductInput) (*Product, error)
	Delete(ctx context.Context, profileID int64, id string) error
}

type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(ctx context.Context, input CreateProductInput) (*Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Price < 0 {
		return nil, ErrInvalidPrice
	}
	return s.repo.Create(ctx, input)
}

func (s *Service) Get(ctx context.Context, profileID int64, id string) (*Product, error) {
	return s.repo.Get(ctx, profileID, id)
}

func (s *Service) List(ctx context.Context, req ListProductsRequest) ([]Product, shared.Pagination, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	items, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	total, err := s.repo.Count(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	page := req.Offset/req.Limit + 1
	return items, shared.NewPagination(page, req.Limit, total), nil
}

func (s *Service) Update(ctx context.Context, profileID int64, id string, input UpdateProductInput) (*Product, error) {
	if input.Price != nil && *input.Price < 0 {
		return nil, ErrInvalidPrice
	}
	return s.repo.Update(ctx, profileID, id, input)
}

func (s *Service) Delete(ctx context.Context, profileID int64, id string) error {
	return s.repo.Delete(ctx, profileID, id)
}
