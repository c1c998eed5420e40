package service

import (
	"context"
	"strings"

	"buildops/internal/metrics"
	"buildops/internal/models"

	"github.com/shopspring/decimal"
)

type ServiceInput struct {
	Name       string
	HourlyRate decimal.Decimal
}

// CatalogService manages the hourly rate catalog.
type CatalogService struct {
	state *State
}

func NewCatalogService(state *State) *CatalogService {
	return &CatalogService{state: state}
}

func validateService(name string, rate decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name", "is required")
	}
	if rate.IsNegative() {
		return invalid("hourlyRate", "must not be negative")
	}
	return nil
}

func (s *CatalogService) List(ctx context.Context) []models.Service {
	var out []models.Service
	s.state.read(func() { out = s.state.services.All() })
	return out
}

func (s *CatalogService) Get(ctx context.Context, id int64) (models.Service, error) {
	var (
		svc models.Service
		ok  bool
	)
	s.state.read(func() { svc, ok = s.state.services.Find(id) })
	if !ok {
		return models.Service{}, ErrServiceNotFound
	}
	return svc, nil
}

// FindByName matches case-insensitively.
func (s *CatalogService) FindByName(ctx context.Context, name string) (models.Service, bool) {
	var (
		svc models.Service
		ok  bool
	)
	s.state.read(func() {
		svc, ok = s.state.services.FindFunc(func(rec models.Service) bool {
			return strings.EqualFold(rec.Name, strings.TrimSpace(name))
		})
	})
	return svc, ok
}

func (s *CatalogService) Add(ctx context.Context, in ServiceInput) (models.Service, error) {
	if err := validateService(in.Name, in.HourlyRate); err != nil {
		return models.Service{}, err
	}

	var svc models.Service
	err := s.state.mutate(ctx, func() ([]string, error) {
		svc = models.Service{
			ID:         s.state.ids.Next(),
			Name:       strings.TrimSpace(in.Name),
			HourlyRate: in.HourlyRate,
		}
		s.state.services.Append(svc)
		return []string{models.KeyServices}, nil
	})
	metrics.IncOperation("add_service", err)
	return svc, err
}

// Update replaces the rate; existing booking totals are not touched.
func (s *CatalogService) Update(ctx context.Context, svc models.Service) error {
	if err := validateService(svc.Name, svc.HourlyRate); err != nil {
		return err
	}

	err := s.state.mutate(ctx, func() ([]string, error) {
		if !s.state.services.Replace(svc) {
			return nil, ErrServiceNotFound
		}
		return []string{models.KeyServices}, nil
	})
	metrics.IncOperation("update_service", err)
	return err
}

func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	err := s.state.mutate(ctx, func() ([]string, error) {
		if !s.state.services.Remove(id) {
			return nil, nil
		}
		return []string{models.KeyServices}, nil
	})
	metrics.IncOperation("delete_service", err)
	return err
}

// Upsert writes services keeping their identifiers: existing ids are
// replaced, new ones appended. Nothing is written if any entry is invalid.
func (s *CatalogService) Upsert(ctx context.Context, services []models.Service) (added, updated int, err error) {
	for _, svc := range services {
		if svc.ID <= 0 {
			return 0, 0, invalid("id", "must be positive")
		}
		if err := validateService(svc.Name, svc.HourlyRate); err != nil {
			return 0, 0, err
		}
	}

	err = s.state.mutate(ctx, func() ([]string, error) {
		for _, svc := range services {
			if s.state.services.Replace(svc) {
				updated++
				continue
			}
			s.state.services.Append(svc)
			s.state.ids.Observe(svc.ID)
			added++
		}
		if added+updated == 0 {
			return nil, nil
		}
		return []string{models.KeyServices}, nil
	})
	metrics.IncOperation("upsert_services", err)
	return added, updated, err
}

// lineTotal prices line items at current rates; mu must be held.
// Unresolved services contribute zero.
func (s *State) lineTotal(items []models.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		svc, ok := s.services.Find(item.ServiceID)
		if !ok {
			continue
		}
		total = total.Add(svc.HourlyRate.Mul(item.Hours))
	}
	return total
}
