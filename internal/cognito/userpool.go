package cognito

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"

	"github.com/aelexs/cognitolocal/internal/datastore"
	"github.com/aelexs/cognitolocal/internal/domain"
)

// UserPoolService operates on one pool's document. It owns the pool's
// DataStore and borrows the shared clients store.
type UserPoolService interface {
	// Config returns the pool configuration loaded at construction.
	Config() domain.UserPool

	CreateAppClient(ctx context.Context, name string) (*domain.AppClient, error)

	SaveUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, user *domain.User) error

	// GetUserByUsername looks up by username key, then by sub, then by
	// enabled alias attributes (email before phone_number). Returns nil
	// when no user matches.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetUserByRefreshToken scans users for ownership of token. Returns
	// nil on miss.
	GetUserByRefreshToken(ctx context.Context, token string) (*domain.User, error)

	ListUsers(ctx context.Context) ([]domain.User, error)

	SaveGroup(ctx context.Context, group *domain.Group) error
	GetGroupByName(ctx context.Context, name string) (*domain.Group, error)
	ListGroups(ctx context.Context) ([]domain.Group, error)

	// StoreRefreshToken appends token to the user's issued set and
	// persists the user.
	StoreRefreshToken(ctx context.Context, token string, user *domain.User) error
}

type userPoolService struct {
	ds      datastore.DataStore
	clients datastore.DataStore
	clock   domain.Clock
	config  domain.UserPool
}

var _ UserPoolService = (*userPoolService)(nil)

func newUserPoolService(ctx context.Context, ds, clients datastore.DataStore, clock domain.Clock) (*userPoolService, error) {
	config, ok, err := datastore.GetAs[domain.UserPool](ctx, ds, "Options")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("pool document has no Options key")
	}
	return &userPoolService{ds: ds, clients: clients, clock: clock, config: config}, nil
}

func (s *userPoolService) Config() domain.UserPool {
	return s.config
}

func (s *userPoolService) CreateAppClient(ctx context.Context, name string) (*domain.AppClient, error) {
	now := s.clock.Now()
	client := domain.AppClient{
		ClientID:             generateClientID(),
		ClientName:           name,
		UserPoolID:           s.config.ID,
		RefreshTokenValidity: domain.DefaultRefreshTokenValidity,
		CreationDate:         now,
		LastModifiedDate:     now,
	}
	if err := s.clients.Set(ctx, client, "Clients", client.ClientID); err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *userPoolService) SaveUser(ctx context.Context, user *domain.User) error {
	return s.ds.Set(ctx, user, "Users", user.Username)
}

func (s *userPoolService) DeleteUser(ctx context.Context, user *domain.User) error {
	return s.ds.Delete(ctx, "Users", user.Username)
}

func (s *userPoolService) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, ok, err := datastore.GetAs[domain.User](ctx, s.ds, "Users", username)
	if err != nil {
		return nil, err
	}
	if ok {
		return &user, nil
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	for i := range users {
		if users[i].Sub() == username {
			return &users[i], nil
		}
	}
	for _, alias := range []string{domain.AttrEmail, domain.AttrPhoneNumber} {
		if !s.config.UsernameAttributeEnabled(alias) {
			continue
		}
		for i := range users {
			if v, ok := users[i].Attributes.Get(alias); ok && v == username {
				return &users[i], nil
			}
		}
	}
	return nil, nil
}

func (s *userPoolService) GetUserByRefreshToken(ctx context.Context, token string) (*domain.User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].HasRefreshToken(token) {
			return &users[i], nil
		}
	}
	return nil, nil
}

func (s *userPoolService) ListUsers(ctx context.Context) ([]domain.User, error) {
	byName, ok, err := datastore.GetAs[map[string]domain.User](ctx, s.ds, "Users")
	if err != nil || !ok {
		return nil, err
	}

	// Username order for deterministic scans and listings.
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	users := make([]domain.User, 0, len(byName))
	for _, name := range names {
		users = append(users, byName[name])
	}
	return users, nil
}

func (s *userPoolService) SaveGroup(ctx context.Context, group *domain.Group) error {
	return s.ds.Set(ctx, group, "Groups", group.GroupName)
}

func (s *userPoolService) GetGroupByName(ctx context.Context, name string) (*domain.Group, error) {
	group, ok, err := datastore.GetAs[domain.Group](ctx, s.ds, "Groups", name)
	if err != nil || !ok {
		return nil, err
	}
	return &group, nil
}

func (s *userPoolService) ListGroups(ctx context.Context) ([]domain.Group, error) {
	byName, ok, err := datastore.GetAs[map[string]domain.Group](ctx, s.ds, "Groups")
	if err != nil || !ok {
		return nil, err
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]domain.Group, 0, len(byName))
	for _, name := range names {
		groups = append(groups, byName[name])
	}
	return groups, nil
}

func (s *userPoolService) StoreRefreshToken(ctx context.Context, token string, user *domain.User) error {
	user.RefreshTokens = append(user.RefreshTokens, token)
	return s.SaveUser(ctx, user)
}

const clientIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// generateClientID produces a 26-character lowercase alphanumeric id in
// the shape the hosted service uses.
func generateClientID() string {
	max := big.NewInt(int64(len(clientIDAlphabet)))
	b := make([]byte, 26)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err) // crypto/rand failure is unrecoverable
		}
		b[i] = clientIDAlphabet[n.Int64()]
	}
	return string(b)
}
