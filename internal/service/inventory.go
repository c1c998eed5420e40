package service

import (
	"context"
	"sort"
	"strings"

	"buildops/internal/metrics"
	"buildops/internal/models"
)

type InventoryInput struct {
	Name     string
	Category string
	Quantity int64
	Status   string
	Notes    string
}

type InventoryService struct {
	state *State
}

func NewInventoryService(state *State) *InventoryService {
	return &InventoryService{state: state}
}

func normalizeItem(item *models.InventoryItem) error {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return invalid("name", "is required")
	}
	if item.Quantity < 0 {
		return invalid("quantity", "must not be negative")
	}
	if item.Status == "" {
		item.Status = models.InventoryAvailable
	}
	if !models.IsInventoryStatus(item.Status) {
		return invalid("status", "unknown status "+item.Status)
	}
	return nil
}

func (s *InventoryService) List(ctx context.Context) []models.InventoryItem {
	var out []models.InventoryItem
	s.state.read(func() { out = s.state.inventory.All() })
	return out
}

func (s *InventoryService) Get(ctx context.Context, id int64) (models.InventoryItem, error) {
	var (
		item models.InventoryItem
		ok   bool
	)
	s.state.read(func() { item, ok = s.state.inventory.Find(id) })
	if !ok {
		return models.InventoryItem{}, ErrInventoryNotFound
	}
	return item, nil
}

// Search matches term against name (case-insensitive) and category exactly.
// Empty arguments match everything.
func (s *InventoryService) Search(ctx context.Context, term, category string) []models.InventoryItem {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []models.InventoryItem
	s.state.read(func() {
		out = s.state.inventory.Filter(func(item models.InventoryItem) bool {
			if category != "" && item.Category != category {
				return false
			}
			return term == "" || strings.Contains(strings.ToLower(item.Name), term)
		})
	})
	return out
}

// Categories returns the distinct categories in sorted order.
func (s *InventoryService) Categories(ctx context.Context) []string {
	seen := make(map[string]bool)
	s.state.read(func() {
		for _, item := range s.state.inventory.All() {
			if item.Category != "" {
				seen[item.Category] = true
			}
		}
	})
	out := make([]string, 0, len(seen))
	for category := range seen {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

func (s *InventoryService) Add(ctx context.Context, in InventoryInput) (models.InventoryItem, error) {
	item := models.InventoryItem{
		Name:     in.Name,
		Category: in.Category,
		Quantity: in.Quantity,
		Status:   in.Status,
		Notes:    in.Notes,
	}
	if err := normalizeItem(&item); err != nil {
		return models.InventoryItem{}, err
	}

	err := s.state.mutate(ctx, func() ([]string, error) {
		item.ID = s.state.ids.Next()
		s.state.inventory.Append(item)
		return []string{models.KeyInventory}, nil
	})
	metrics.IncOperation("add_inventory", err)
	return item, err
}

func (s *InventoryService) Update(ctx context.Context, item models.InventoryItem) error {
	if err := normalizeItem(&item); err != nil {
		return err
	}

	err := s.state.mutate(ctx, func() ([]string, error) {
		if !s.state.inventory.Replace(item) {
			return nil, ErrInventoryNotFound
		}
		return []string{models.KeyInventory}, nil
	})
	metrics.IncOperation("update_inventory", err)
	return err
}

func (s *InventoryService) Delete(ctx context.Context, id int64) error {
	err := s.state.mutate(ctx, func() ([]string, error) {
		if !s.state.inventory.Remove(id) {
			return nil, nil
		}
		return []string{models.KeyInventory}, nil
	})
	metrics.IncOperation("delete_inventory", err)
	return err
}
