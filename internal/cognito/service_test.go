package cognito_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/cognitolocal/internal/cognito"
	"github.com/aelexs/cognitolocal/internal/datastore"
	"github.com/aelexs/cognitolocal/internal/domain"
	"github.com/aelexs/cognitolocal/internal/domain/domaintest"
)

func newService(t *testing.T) (cognito.Service, *domaintest.FakeClock) {
	t.Helper()
	clock := domaintest.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, err := cognito.NewService(context.Background(), cognito.ServiceConfig{
		Factory: datastore.NewFactory(t.TempDir()),
		Clock:   clock,
	})
	require.NoError(t, err)
	return svc, clock
}

func TestCreateAndGetUserPool(t *testing.T) {
	ctx := context.Background()
	svc, clock := newService(t)

	pool, err := svc.CreateUserPool(ctx, domain.UserPool{ID: "local_test", Name: "test"})
	require.NoError(t, err)
	assert.Equal(t, "local_test", pool.ID)
	assert.Equal(t, clock.Now(), pool.CreationDate)
	assert.NotEmpty(t, pool.SchemaAttributes, "default schema applied")

	got, err := svc.GetUserPool(ctx, "local_test")
	require.NoError(t, err)
	assert.Equal(t, "test", got.Config().Name)
}

func TestCreateUserPoolGeneratesID(t *testing.T) {
	svc, _ := newService(t)
	pool, err := svc.CreateUserPool(context.Background(), domain.UserPool{})
	require.NoError(t, err)
	assert.Regexp(t, `^local_[0-9a-f]{8}$`, pool.ID)
}

func TestGetUserPoolMissing(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.GetUserPool(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
	assert.EqualError(t, err, "User pool missing does not exist.")
}

func TestDefaultPoolCreatedLazily(t *testing.T) {
	ctx := context.Background()
	clock := domaintest.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, err := cognito.NewService(ctx, cognito.ServiceConfig{
		Factory:       datastore.NewFactory(t.TempDir()),
		Clock:         clock,
		DefaultPoolID: "local",
	})
	require.NoError(t, err)

	// First access on a fresh data dir materializes the pool with the
	// standard defaults.
	pool, err := svc.GetUserPool(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, "local", pool.Config().ID)
	assert.NotEmpty(t, pool.Config().SchemaAttributes)

	// State written through the lazily created pool survives re-access.
	require.NoError(t, pool.SaveUser(ctx, sampleUser("alice", clock)))
	again, err := svc.GetUserPool(ctx, "local")
	require.NoError(t, err)
	u, err := again.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u)

	// Other ids still miss.
	_, err = svc.GetUserPool(ctx, "elsewhere")
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
}

func TestDeleteUserPool(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.CreateUserPool(ctx, domain.UserPool{ID: "p1"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteUserPool(ctx, "p1"))

	_, err = svc.GetUserPool(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
	assert.ErrorIs(t, svc.DeleteUserPool(ctx, "p1"), domain.ErrResourceNotFound)
}

func TestListUserPoolsSkipsClientsStore(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.CreateUserPool(ctx, domain.UserPool{ID: "a"})
	require.NoError(t, err)
	_, err = svc.CreateUserPool(ctx, domain.UserPool{ID: "b"})
	require.NoError(t, err)

	pools, err := svc.ListUserPools(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, "a", pools[0].ID)
	assert.Equal(t, "b", pools[1].ID)
}

func TestAppClientLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.CreateUserPool(ctx, domain.UserPool{ID: "p1"})
	require.NoError(t, err)
	poolSvc, err := svc.GetUserPool(ctx, "p1")
	require.NoError(t, err)

	client, err := poolSvc.CreateAppClient(ctx, "my-app")
	require.NoError(t, err)
	assert.Len(t, client.ClientID, 26)
	assert.Equal(t, "p1", client.UserPoolID)
	assert.Equal(t, domain.DefaultRefreshTokenValidity, client.RefreshTokenValidity)

	resolved, err := svc.GetUserPoolForClientID(ctx, client.ClientID)
	require.NoError(t, err)
	assert.Equal(t, "p1", resolved.Config().ID)

	got, err := svc.GetAppClient(ctx, client.ClientID)
	require.NoError(t, err)
	assert.Equal(t, "my-app", got.ClientName)

	require.NoError(t, svc.DeleteAppClient(ctx, got))
	_, err = svc.GetAppClient(ctx, client.ClientID)
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
}

func TestGetUserPoolForUnknownClient(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.GetUserPoolForClientID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
}

func poolWith(t *testing.T, cfg domain.UserPool) (cognito.UserPoolService, *domaintest.FakeClock) {
	t.Helper()
	svc, clock := newService(t)
	if cfg.ID == "" {
		cfg.ID = "p1"
	}
	_, err := svc.CreateUserPool(context.Background(), cfg)
	require.NoError(t, err)
	poolSvc, err := svc.GetUserPool(context.Background(), cfg.ID)
	require.NoError(t, err)
	return poolSvc, clock
}

func sampleUser(username string, clock domain.Clock, attrs ...domain.AttributeType) *domain.User {
	now := clock.Now()
	return &domain.User{
		Username:             username,
		Password:             "hunter2",
		UserStatus:           domain.StatusConfirmed,
		Enabled:              true,
		Attributes:           append(domain.AttributeList{{Name: domain.AttrSub, Value: "sub-" + username}}, attrs...),
		UserCreateDate:       now,
		UserLastModifiedDate: now,
		RefreshTokens:        []string{},
	}
}

func TestUserLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("direct username key", func(t *testing.T) {
		pool, clock := poolWith(t, domain.UserPool{})
		require.NoError(t, pool.SaveUser(ctx, sampleUser("alice", clock)))

		u, err := pool.GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "alice", u.Username)
	})

	t.Run("fallback to sub", func(t *testing.T) {
		pool, clock := poolWith(t, domain.UserPool{})
		require.NoError(t, pool.SaveUser(ctx, sampleUser("alice", clock)))

		u, err := pool.GetUserByUsername(ctx, "sub-alice")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "alice", u.Username)
	})

	t.Run("email alias only when enabled", func(t *testing.T) {
		pool, clock := poolWith(t, domain.UserPool{UsernameAttributes: []string{domain.AttrEmail}})
		require.NoError(t, pool.SaveUser(ctx, sampleUser("alice", clock,
			domain.AttributeType{Name: domain.AttrEmail, Value: "a@x.com"})))

		u, err := pool.GetUserByUsername(ctx, "a@x.com")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "alice", u.Username)
	})

	t.Run("email alias disabled yields miss", func(t *testing.T) {
		pool, clock := poolWith(t, domain.UserPool{})
		require.NoError(t, pool.SaveUser(ctx, sampleUser("alice", clock,
			domain.AttributeType{Name: domain.AttrEmail, Value: "a@x.com"})))

		u, err := pool.GetUserByUsername(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("phone alias", func(t *testing.T) {
		pool, clock := poolWith(t, domain.UserPool{UsernameAttributes: []string{domain.AttrPhoneNumber}})
		require.NoError(t, pool.SaveUser(ctx, sampleUser("bob", clock,
			domain.AttributeType{Name: domain.AttrPhoneNumber, Value: "+15551234567"})))

		u, err := pool.GetUserByUsername(ctx, "+15551234567")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "bob", u.Username)
	})
}

func TestRefreshTokenStorage(t *testing.T) {
	ctx := context.Background()
	pool, clock := poolWith(t, domain.UserPool{})

	user := sampleUser("alice", clock)
	require.NoError(t, pool.SaveUser(ctx, user))
	require.NoError(t, pool.StoreRefreshToken(ctx, "tok-1", user))

	found, err := pool.GetUserByRefreshToken(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "alice", found.Username)

	miss, err := pool.GetUserByRefreshToken(ctx, "tok-2")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestGroups(t *testing.T) {
	ctx := context.Background()
	pool, clock := poolWith(t, domain.UserPool{})

	now := clock.Now()
	require.NoError(t, pool.SaveGroup(ctx, &domain.Group{
		GroupName: "admins", UserPoolID: "p1", Description: "ops",
		CreationDate: now, LastModifiedDate: now,
	}))

	g, err := pool.GetGroupByName(ctx, "admins")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "ops", g.Description)

	missing, err := pool.GetGroupByName(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	groups, err := pool.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "admins", groups[0].GroupName)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	pool, clock := poolWith(t, domain.UserPool{})

	user := sampleUser("alice", clock)
	require.NoError(t, pool.SaveUser(ctx, user))
	require.NoError(t, pool.DeleteUser(ctx, user))

	got, err := pool.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)
}
