package service

import (
	"context"
	"sync"

	"github.com/smallbiznis/partnerbot/internal/clock"
	"github.com/smallbiznis/partnerbot/internal/settings/domain"
	"github.com/smallbiznis/partnerbot/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	clock clock.Clock
	repo  repository.Repository[domain.Settings]

	mu sync.Mutex
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("settings.service"),
		clock: p.Clock,
		repo:  repository.ProvideStore[domain.Settings](p.DB),
	}
}

func (s *Service) Get(ctx context.Context) (domain.Settings, error) {
	row, err := s.repo.FindOne(ctx, &domain.Settings{Key: domain.GlobalKey})
	if err != nil {
		return domain.Settings{}, err
	}
	if row == nil {
		return domain.Settings{Key: domain.GlobalKey}, nil
	}
	return *row, nil
}

func (s *Service) SetApplicationsOpen(ctx context.Context, open bool) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, open)
}

func (s *Service) ToggleApplications(ctx context.Context) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	return s.write(ctx, !current.ApplicationsOpen)
}

func (s *Service) write(ctx context.Context, open bool) (domain.Settings, error) {
	row := domain.Settings{
		Key:              domain.GlobalKey,
		ApplicationsOpen: open,
		UpdatedAt:        s.clock.Now(),
	}
	if err := s.repo.Save(ctx, &row); err != nil {
		return domain.Settings{}, err
	}
	s.log.Info("settings.applications.updated", zap.Bool("applications_open", open))
	return row, nil
}
