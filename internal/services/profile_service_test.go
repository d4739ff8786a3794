package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"configurator/internal/models"
	"configurator/internal/repositories"
	"configurator/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProfileService_SaveRemote(t *testing.T) {
	repo := new(MockProfileRepository)
	kv := repositories.NewMemoryKeyValueStore()
	svc := services.NewProfileService(repo, kv, nil)

	repo.On("Upsert", mock.Anything, mock.AnythingOfType("*models.Profile")).Return(nil).Once()

	p, store, err := svc.Save(context.Background(), "u1", services.ProfileInput{
		FullName:    "  Ada Lovelace ",
		Phone:       "+46 431 454 460",
		Preferences: map[string]interface{}{"budget": "3m+"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StoreRemote, store)
	assert.Equal(t, "Ada Lovelace", p.FullName)

	var prefs map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(p.Preferences), &prefs))
	assert.Equal(t, "3m+", prefs["budget"])

	data, err := kv.Get(services.OnboardingKey)
	require.NoError(t, err)
	assert.Empty(t, data, "a remote save leaves local storage alone")
	repo.AssertExpectations(t)
}

func TestProfileService_SaveFallsBackToLocal(t *testing.T) {
	repo := new(MockProfileRepository)
	kv := repositories.NewMemoryKeyValueStore()
	svc := services.NewProfileService(repo, kv, nil)
	ctx := context.Background()

	repo.On("Upsert", mock.Anything, mock.Anything).Return(repositories.ErrRemoteUnavailable)
	repo.On("GetByID", mock.Anything, "u1").Return(nil, repositories.ErrRemoteUnavailable)
	repo.On("GetByID", mock.Anything, "u2").Return(nil, repositories.ErrNotFound)

	_, store, err := svc.Save(ctx, "u1", services.ProfileInput{FullName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, models.StoreLocal, store)

	p, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.FullName)
	assert.Equal(t, "{}", p.Preferences)

	_, err = svc.Get(ctx, "u2")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestProfileService_SaveBothStoresFail(t *testing.T) {
	repo := new(MockProfileRepository)
	kv := repositories.NewMemoryKeyValueStore()
	kv.SetFailure(errors.New("read-only"))
	svc := services.NewProfileService(repo, kv, nil)

	repo.On("Upsert", mock.Anything, mock.Anything).Return(repositories.ErrRemoteRejected)

	_, _, err := svc.Save(context.Background(), "u1", services.ProfileInput{FullName: "Ada"})
	assert.ErrorIs(t, err, services.ErrRemoteRejected)
	assert.ErrorIs(t, err, services.ErrLocalStorageUnavailable)
}
