package contacts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"smarttv-backend/internal/users"
)

var (
	ErrNotFound        = errors.New("contacts: not found")
	ErrInvalidArgument = errors.New("contacts: invalid argument")
)

// Directory resolves usernames and ids against the user registry.
type Directory interface {
	GetByUsername(ctx context.Context, username string) (users.User, error)
	GetByID(ctx context.Context, id string) (users.User, error)
}

// OnlineChecker answers whether a user currently counts as online.
type OnlineChecker interface {
	IsOnline(ctx context.Context, username string) (bool, error)
}

// Service manages per-user contact lists.
type Service struct {
	repo      Repository
	directory Directory
	presence  OnlineChecker
	clock     func() time.Time
	log       *slog.Logger
}

func NewService(repo Repository, directory Directory, presence OnlineChecker, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:      repo,
		directory: directory,
		presence:  presence,
		clock:     time.Now,
		log:       log,
	}
}

// Add puts contact on owner's list. Idempotent: re-adding succeeds and
// changes nothing.
func (s *Service) Add(ctx context.Context, owner, contact string) error {
	ownerU, contactU, err := s.resolvePair(ctx, owner, contact)
	if err != nil {
		return err
	}
	if err := s.repo.Add(ctx, ownerU.ID, contactU.ID, s.clock().UTC()); err != nil {
		return err
	}
	s.log.Info("contact added", "user", owner, "contact", contact)
	return nil
}

func (s *Service) Remove(ctx context.Context, owner, contact string) error {
	ownerU, contactU, err := s.resolvePair(ctx, owner, contact)
	if err != nil {
		return err
	}
	removed, err := s.repo.Remove(ctx, ownerU.ID, contactU.ID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	s.log.Info("contact removed", "user", owner, "contact", contact)
	return nil
}

func (s *Service) SetFavorite(ctx context.Context, owner, contact string, favorite bool) error {
	ownerU, contactU, err := s.resolvePair(ctx, owner, contact)
	if err != nil {
		return err
	}
	updated, err := s.repo.SetFavorite(ctx, ownerU.ID, contactU.ID, favorite)
	if err != nil {
		return err
	}
	if !updated {
		return ErrNotFound
	}
	return nil
}

// IsContact reports whether contact is on owner's list.
func (s *Service) IsContact(ctx context.Context, owner, contact string) (bool, error) {
	ownerU, contactU, err := s.resolvePair(ctx, owner, contact)
	if err != nil {
		return false, err
	}
	return s.repo.Exists(ctx, ownerU.ID, contactU.ID)
}

// List returns owner's contacts with profile and presence annotations,
// favorites first. A contact whose user record disappeared is skipped.
// Presence failures degrade to offline rather than failing the list.
func (s *Service) List(ctx context.Context, owner string) ([]Entry, error) {
	ownerU, err := s.resolveUser(ctx, owner)
	if err != nil {
		return nil, err
	}
	edges, err := s.repo.List(ctx, ownerU.ID)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(edges))
	for _, edge := range edges {
		u, err := s.directory.GetByID(ctx, edge.ContactUserID)
		if errors.Is(err, users.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		online := false
		if s.presence != nil {
			if on, err := s.presence.IsOnline(ctx, u.Username); err == nil {
				online = on
			} else {
				s.log.Warn("presence lookup failed, showing offline", "contact", u.Username, "error", err)
			}
		}

		out = append(out, Entry{
			Username:    u.Username,
			DisplayName: u.DisplayName,
			DeviceType:  u.DeviceType,
			IsFavorite:  edge.IsFavorite,
			Online:      online,
		})
	}
	return out, nil
}

func (s *Service) resolvePair(ctx context.Context, owner, contact string) (users.User, users.User, error) {
	if owner == "" || contact == "" || owner == contact {
		return users.User{}, users.User{}, ErrInvalidArgument
	}
	ownerU, err := s.resolveUser(ctx, owner)
	if err != nil {
		return users.User{}, users.User{}, err
	}
	contactU, err := s.resolveUser(ctx, contact)
	if err != nil {
		return users.User{}, users.User{}, err
	}
	return ownerU, contactU, nil
}

func (s *Service) resolveUser(ctx context.Context, username string) (users.User, error) {
	if username == "" {
		return users.User{}, ErrInvalidArgument
	}
	u, err := s.directory.GetByUsername(ctx, username)
	if errors.Is(err, users.ErrNotFound) {
		return users.User{}, ErrNotFound
	}
	return u, err
}
