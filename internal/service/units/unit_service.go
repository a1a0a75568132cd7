package units

import (
	"context"
	"errors"

	"github.com/Domenick1991/flatstay/internal/apperr"
	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/Domenick1991/flatstay/internal/repository"
)

type UnitUseCase interface {
	List(ctx context.Context) ([]domain.Unit, error)
	Get(ctx context.Context, kind domain.UnitKind, id int64) (*domain.Unit, error)
	ConfirmHandover(ctx context.Context, kind domain.UnitKind, id, actorID int64) (*domain.Unit, error)
}

type Cache interface {
	GetUnits(ctx context.Context) ([]domain.Unit, error)
	SetUnits(ctx context.Context, units []domain.Unit) error
}

type Service struct {
	repo  repository.UnitRepository
	users repository.UserRepository
	cache Cache
}

func NewService(repo repository.UnitRepository, users repository.UserRepository, cache Cache) *Service {
	return &Service{repo: repo, users: users, cache: cache}
}

// List returns the unit catalogue, served from the redis snapshot when one is
// present. The snapshot may lag writes by its TTL; booking correctness never
// depends on it.
func (s *Service) List(ctx context.Context) ([]domain.Unit, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetUnits(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	units, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal("list units", err)
	}
	if s.cache != nil {
		_ = s.cache.SetUnits(ctx, units)
	}
	return units, nil
}

func (s *Service) Get(ctx context.Context, kind domain.UnitKind, id int64) (*domain.Unit, error) {
	if kind != domain.UnitKindFlat && kind != domain.UnitKindPG {
		return nil, apperr.Validation("unknown unit kind %q", kind)
	}
	u, err := s.repo.GetUnit(ctx, kind, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("unit %s/%d not found", kind, id)
		}
		return nil, apperr.Internal("load unit", err)
	}
	return u, nil
}

// ConfirmHandover is the admin side of the flat handover workflow: it moves a
// unit's review status from under_review to confirmed. The transition is a
// guarded compare-and-set because the reconciliation engine writes the same
// field; a lost race or a unit not under review surfaces as a conflict.
func (s *Service) ConfirmHandover(ctx context.Context, kind domain.UnitKind, id, actorID int64) (*domain.Unit, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Forbidden("actor account not found")
		}
		return nil, apperr.Internal("load actor", err)
	}
	if actor.Role != domain.UserRoleAdmin {
		return nil, apperr.Forbidden("handover confirmation requires an administrator")
	}

	ok, err := s.repo.CASReviewStatus(ctx, kind, id, domain.ReviewStatusUnderReview, domain.ReviewStatusConfirmed)
	if err != nil {
		return nil, apperr.Internal("confirm handover", err)
	}
	if !ok {
		return nil, apperr.Conflict("unit is not under review")
	}
	return s.Get(ctx, kind, id)
}

var _ UnitUseCase = (*Service)(nil)
