package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"configurator/internal/models"
	"configurator/internal/repositories"

	"go.uber.org/zap"
)

// OnboardingKey is the local key onboarding data falls back to.
const OnboardingKey = "onboarding_data"

// ProfileInput is what the onboarding form collects.
type ProfileInput struct {
	FullName    string                 `json:"full_name" validate:"required,min=2,max=100"`
	Phone       string                 `json:"phone" validate:"omitempty,max=32"`
	Preferences map[string]interface{} `json:"preferences"`
}

// ProfileService saves onboarding profiles, degrading to local storage like orders do.
type ProfileService struct {
	repo   repositories.ProfileRepository
	local  repositories.KeyValueStore
	logger *zap.Logger
	mu     sync.Mutex
}

// NewProfileService creates a new ProfileService.
func NewProfileService(repo repositories.ProfileRepository, local repositories.KeyValueStore, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, local: local, logger: logger}
}

// Save upserts the user's profile, storing it locally when the remote store fails.
func (s *ProfileService) Save(ctx context.Context, userID string, in ProfileInput) (*models.Profile, models.Store, error) {
	prefs := []byte("{}")
	if len(in.Preferences) > 0 {
		var err error
		if prefs, err = json.Marshal(in.Preferences); err != nil {
			return nil, "", fmt.Errorf("failed to encode preferences: %w", err)
		}
	}
	profile := &models.Profile{
		ID:          userID,
		FullName:    strings.TrimSpace(in.FullName),
		Phone:       strings.TrimSpace(in.Phone),
		Preferences: string(prefs),
		UpdatedAt:   time.Now().UTC(),
	}

	err := s.repo.Upsert(ctx, profile)
	if err == nil {
		return profile, models.StoreRemote, nil
	}
	s.logger.Warn("profile save failed, using local fallback",
		zap.String("user_id", userID),
		zap.String("kind", repositories.FailureKind(err)),
		zap.Error(err))

	if lerr := s.saveLocal(profile); lerr != nil {
		return nil, "", fmt.Errorf("failed to save profile: %w", errors.Join(err, lerr))
	}
	return profile, models.StoreLocal, nil
}

// Get returns the user's profile from the remote store, or the local copy when the remote fails.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := s.repo.GetByID(ctx, userID)
	if err == nil {
		return p, nil
	}
	profiles, lerr := s.loadLocal()
	if lerr == nil {
		if lp, ok := profiles[userID]; ok {
			return &lp, nil
		}
	}
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return nil, fmt.Errorf("profile %s unavailable: %w", userID, ErrNotFound)
}

func (s *ProfileService) loadLocal() (map[string]models.Profile, error) {
	data, err := s.local.Get(OnboardingKey)
	if err != nil {
		return nil, err
	}
	profiles := make(map[string]models.Profile)
	if len(data) == 0 {
		return profiles, nil
	}
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("%w: corrupt %s: %w", ErrLocalStorageUnavailable, OnboardingKey, err)
	}
	return profiles, nil
}

func (s *ProfileService) saveLocal(p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.loadLocal()
	if err != nil {
		return err
	}
	profiles[p.ID] = *p
	data, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLocalStorageUnavailable, err)
	}
	return s.local.Set(OnboardingKey, data)
}
