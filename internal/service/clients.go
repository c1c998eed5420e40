package service

import (
	"context"
	"strings"

	"buildops/internal/metrics"
	"buildops/internal/models"
)

type ClientInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

type ClientService struct {
	state *State
}

func NewClientService(state *State) *ClientService {
	return &ClientService{state: state}
}

func (s *ClientService) List(ctx context.Context) []models.Client {
	var out []models.Client
	s.state.read(func() { out = s.state.clients.All() })
	return out
}

func (s *ClientService) Get(ctx context.Context, id int64) (models.Client, error) {
	var (
		client models.Client
		ok     bool
	)
	s.state.read(func() { client, ok = s.state.clients.Find(id) })
	if !ok {
		return models.Client{}, ErrClientNotFound
	}
	return client, nil
}

func (s *ClientService) Add(ctx context.Context, in ClientInput) (models.Client, error) {
	if strings.TrimSpace(in.Name) == "" {
		return models.Client{}, invalid("name", "is required")
	}

	var client models.Client
	err := s.state.mutate(ctx, func() ([]string, error) {
		client = models.Client{
			ID:        s.state.ids.Next(),
			Name:      strings.TrimSpace(in.Name),
			Email:     in.Email,
			Phone:     in.Phone,
			Address:   in.Address,
			CreatedAt: s.state.now(),
		}
		s.state.clients.Append(client)
		return []string{models.KeyClients}, nil
	})
	metrics.IncOperation("add_client", err)
	return client, err
}

// Update replaces the stored client. CreatedAt is kept from the stored record.
func (s *ClientService) Update(ctx context.Context, client models.Client) error {
	if strings.TrimSpace(client.Name) == "" {
		return invalid("name", "is required")
	}

	err := s.state.mutate(ctx, func() ([]string, error) {
		stored, ok := s.state.clients.Find(client.ID)
		if !ok {
			return nil, ErrClientNotFound
		}
		client.CreatedAt = stored.CreatedAt
		s.state.clients.Replace(client)
		return []string{models.KeyClients}, nil
	})
	metrics.IncOperation("update_client", err)
	return err
}

// Delete removes the client. Bookings keep the dangling reference.
func (s *ClientService) Delete(ctx context.Context, id int64) error {
	err := s.state.mutate(ctx, func() ([]string, error) {
		if !s.state.clients.Remove(id) {
			return nil, nil
		}
		return []string{models.KeyClients}, nil
	})
	metrics.IncOperation("delete_client", err)
	return err
}

// clientName resolves a weak reference; mu must be held.
func (s *State) clientName(id int64) string {
	if client, ok := s.clients.Find(id); ok {
		return client.Name
	}
	return models.UnknownClient
}
