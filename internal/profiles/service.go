package profiles

import "context"

// RepositoryPort defines data access for profiles.
type RepositoryPort interface {
	Create(ctx context.Context, email, passwordHash string, storeName *string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	GetByID(ctx context.Context, id int64) (*Profile, error)
	Update(ctx context.Context, id int64, input UpdateProfileInput) (*Profile, error)
}

// Service handles profile reads and updates.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns the profile by id.
func (s *Service) Get(ctx context.Context, id int64) (*Profile, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies field changes.
func (s *Service) Update(ctx context.Context, id int64, input UpdateProfileInput) (*Profile, error) {
	return s.repo.Update(ctx, id, input)
}
