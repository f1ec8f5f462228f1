package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("users: not found")
	ErrInvalidArgument = errors.New("users: invalid argument")
	ErrAlreadyExists   = errors.New("users: already exists")
)

const defaultDeviceType = "smarttv"

// Service provides user registry operations.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// RegisterOrUpdate creates the user on first sight; on subsequent calls it
// refreshes last_seen and, when a new display name is provided, updates it.
func (s *Service) RegisterOrUpdate(ctx context.Context, username, displayName, deviceType string) (Registration, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Registration{}, ErrInvalidArgument
	}
	if deviceType == "" {
		deviceType = defaultDeviceType
	}

	now := s.clock().UTC()

	existing, err := s.repo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if err := s.repo.TouchLastSeen(ctx, username, now); err != nil {
			return Registration{}, err
		}
		if displayName != "" && displayName != existing.DisplayName {
			if err := s.repo.UpdateDisplayName(ctx, username, displayName); err != nil {
				return Registration{}, err
			}
			existing.DisplayName = displayName
		}
		existing.LastSeen = now
		return Registration{User: existing, IsNewUser: false}, nil

	case errors.Is(err, ErrNotFound):
		if displayName == "" {
			displayName = username
		}
		u := User{
			ID:          uuid.NewString(),
			Username:    username,
			DisplayName: displayName,
			DeviceType:  deviceType,
			LastSeen:    now,
			CreatedAt:   now,
		}
		if err := s.repo.Insert(ctx, u); err != nil {
			return Registration{}, err
		}
		return Registration{User: u, IsNewUser: true}, nil

	default:
		return Registration{}, err
	}
}

func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	if username == "" {
		return User{}, ErrInvalidArgument
	}
	return s.repo.GetByUsername(ctx, username)
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrInvalidArgument
	}
	return s.repo.GetByID(ctx, id)
}

// TouchLastSeen refreshes the user's last activity timestamp.
// Called on every authenticated action.
func (s *Service) TouchLastSeen(ctx context.Context, username string) error {
	if username == "" {
		return ErrInvalidArgument
	}
	return s.repo.TouchLastSeen(ctx, username, s.clock().UTC())
}

func (s *Service) Search(ctx context.Context, query, exclude string, limit int) ([]User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.Search(ctx, query, exclude, limit)
}

// ListActive returns users ordered by recency of activity.
func (s *Service) ListActive(ctx context.Context, limit int) ([]User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListActive(ctx, limit)
}
