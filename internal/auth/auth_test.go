package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/careline/message-dispatch/internal/model"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockOrgConfigRepo struct {
	mock.Mock
}

func (m *MockOrgConfigRepo) FindByOrganisationID(ctx context.Context, organisationID int64) (*model.OrganisationConfig, error) {
	args := m.Called(ctx, organisationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrganisationConfig), args.Error(1)
}

func TestUserContextRoundTrip(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		uc := &Context{OrganisationID: 1, UserName: "asha"}
		ctx := WithUserContext(context.Background(), uc)

		got, err := UserContextFrom(ctx)
		require.NoError(t, err)
		assert.Equal(t, uc, got)
	})

	t.Run("absent", func(t *testing.T) {
		_, err := UserContextFrom(context.Background())
		assert.ErrorIs(t, err, ErrNoUserContext)
	})
}

func TestService_AuthenticateByUserName(t *testing.T) {
	t.Run("carries identity and provider credentials", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		orgRepo := new(MockOrgConfigRepo)
		svc := NewService(userRepo, orgRepo, "admin")

		userRepo.On("FindByUsername", mock.Anything, "asha").
			Return(&model.User{ID: 10, Username: "asha", OrganisationID: 1}, nil)
		orgRepo.On("FindByOrganisationID", mock.Anything, int64(1)).
			Return(&model.OrganisationConfig{
				OrganisationID:   1,
				OrganisationName: "careline",
				ProviderAPIKey:   "tenant-key",
				ProviderPhoneID:  "phone-1",
			}, nil)

		ctx, err := svc.AuthenticateByUserName(context.Background(), "asha")
		require.NoError(t, err)

		uc, err := UserContextFrom(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), uc.OrganisationID)
		assert.Equal(t, "careline", uc.OrganisationName)
		assert.Equal(t, "tenant-key", uc.ProviderAPIKey)
		assert.Equal(t, "phone-1", uc.ProviderPhoneID)
	})

	t.Run("unknown user", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		svc := NewService(userRepo, new(MockOrgConfigRepo), "admin")

		userRepo.On("FindByUsername", mock.Anything, "ghost").
			Return(nil, errors.New("user not found"))

		_, err := svc.AuthenticateByUserName(context.Background(), "ghost")
		assert.Error(t, err)
	})

	t.Run("missing organisation config leaves credentials empty", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		orgRepo := new(MockOrgConfigRepo)
		svc := NewService(userRepo, orgRepo, "admin")

		userRepo.On("FindByUsername", mock.Anything, "asha").
			Return(&model.User{ID: 10, Username: "asha", OrganisationID: 1}, nil)
		orgRepo.On("FindByOrganisationID", mock.Anything, int64(1)).
			Return(nil, errors.New("not found"))

		ctx, err := svc.AuthenticateByUserName(context.Background(), "asha")
		require.NoError(t, err)

		uc, err := UserContextFrom(ctx)
		require.NoError(t, err)
		assert.Empty(t, uc.ProviderAPIKey)
	})
}

func TestService_AuthenticateForOrganisation(t *testing.T) {
	userRepo := new(MockUserRepo)
	orgRepo := new(MockOrgConfigRepo)
	svc := NewService(userRepo, orgRepo, "admin")

	orgRepo.On("FindByOrganisationID", mock.Anything, int64(2)).
		Return(&model.OrganisationConfig{
			OrganisationID:   2,
			OrganisationName: "beta",
			SystemUserName:   "beta-system",
		}, nil)
	userRepo.On("FindByUsername", mock.Anything, "beta-system").
		Return(&model.User{ID: 20, Username: "beta-system", OrganisationID: 2}, nil)

	ctx, err := svc.AuthenticateForOrganisation(context.Background(), 2)
	require.NoError(t, err)

	uc, err := UserContextFrom(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), uc.OrganisationID)
	assert.Equal(t, "beta-system", uc.UserName)
}

func TestService_AuthenticateAdmin(t *testing.T) {
	userRepo := new(MockUserRepo)
	orgRepo := new(MockOrgConfigRepo)
	svc := NewService(userRepo, orgRepo, "admin")

	userRepo.On("FindByUsername", mock.Anything, "admin").
		Return(&model.User{ID: 1, Username: "admin", OrganisationID: 1, IsAdmin: true}, nil)
	orgRepo.On("FindByOrganisationID", mock.Anything, int64(1)).
		Return(&model.OrganisationConfig{OrganisationID: 1, OrganisationName: "careline"}, nil)

	ctx, err := svc.AuthenticateAdmin(context.Background())
	require.NoError(t, err)

	uc, err := UserContextFrom(ctx)
	require.NoError(t, err)
	assert.True(t, uc.IsAdmin)
}
