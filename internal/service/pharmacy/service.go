package pharmacy

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/pkg/errors"
	"github.com/jwalitptl/adherence-api/pkg/phone"
)

type PharmacyService interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Pharmacy, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdatePharmacyRequest) (*model.Pharmacy, error)
}

type Service struct {
	repo repository.PharmacyRepository
}

func NewService(repo repository.PharmacyRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Pharmacy, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePharmacyRequest) (*model.Pharmacy, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" {
		return nil, errors.BadRequest("name is required", nil)
	}
	if !phone.IsValidEmail(email) {
		return nil, errors.BadRequest("invalid email", nil)
	}

	p.Name = name
	p.Email = email
	p.Phone = phone.Digits(req.Phone)
	p.Address = strings.TrimSpace(req.Address)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
