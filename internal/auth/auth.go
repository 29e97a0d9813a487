package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/careline/message-dispatch/internal/model"
)

var ErrNoUserContext = errors.New("no user context present")

type contextKey string

const userContextKey contextKey = "user-context"

// Context is the execution identity carried down the call chain: the acting
// user, its organisation and the tenant's provider credentials. It is always
// passed explicitly via context.Context values, never held in a global, so
// concurrent tenant processing cannot leak identity across tenants.
type Context struct {
	OrganisationID   int64
	OrganisationName string
	UserID           int64
	UserName         string
	IsAdmin          bool
	ProviderAPIKey   string
	ProviderPhoneID  string
}

func WithUserContext(ctx context.Context, uc *Context) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

func UserContextFrom(ctx context.Context) (*Context, error) {
	uc, ok := ctx.Value(userContextKey).(*Context)
	if !ok || uc == nil {
		return nil, ErrNoUserContext
	}
	return uc, nil
}

type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

type OrganisationConfigRepository interface {
	FindByOrganisationID(ctx context.Context, organisationID int64) (*model.OrganisationConfig, error)
}

// Service resolves usernames to execution identities.
type Service struct {
	userRepo      UserRepository
	orgConfigRepo OrganisationConfigRepository
	adminUserName string
}

func NewService(userRepo UserRepository, orgConfigRepo OrganisationConfigRepository, adminUserName string) *Service {
	return &Service{
		userRepo:      userRepo,
		orgConfigRepo: orgConfigRepo,
		adminUserName: adminUserName,
	}
}

// AuthenticateByUserName builds a fresh context carrying the identity of the
// named user and its tenant's provider credentials.
func (s *Service) AuthenticateByUserName(ctx context.Context, username string) (context.Context, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("authenticate %q: %w", username, err)
	}

	uc := &Context{
		OrganisationID: user.OrganisationID,
		UserID:         user.ID,
		UserName:       user.Username,
		IsAdmin:        user.IsAdmin,
	}

	if cfg, err := s.orgConfigRepo.FindByOrganisationID(ctx, user.OrganisationID); err == nil {
		uc.OrganisationName = cfg.OrganisationName
		uc.ProviderAPIKey = cfg.ProviderAPIKey
		uc.ProviderPhoneID = cfg.ProviderPhoneID
	}

	return WithUserContext(ctx, uc), nil
}

// AuthenticateAdmin establishes the cross-tenant admin identity used between
// tenant iterations of the dispatch job.
func (s *Service) AuthenticateAdmin(ctx context.Context) (context.Context, error) {
	return s.AuthenticateByUserName(ctx, s.adminUserName)
}

// AuthenticateForOrganisation switches to a tenant's configured system user.
func (s *Service) AuthenticateForOrganisation(ctx context.Context, organisationID int64) (context.Context, error) {
	cfg, err := s.orgConfigRepo.FindByOrganisationID(ctx, organisationID)
	if err != nil {
		return nil, fmt.Errorf("authenticate for organisation %d: %w", organisationID, err)
	}
	return s.AuthenticateByUserName(ctx, cfg.SystemUserName)
}
