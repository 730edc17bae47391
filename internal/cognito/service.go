// Package cognito owns the registry of user pools and the per-pool
// service. Pools persist one datastore document each; app clients live in
// a shared "clients" store so a ClientId can be resolved to its pool
// without opening every pool document.
package cognito

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/aelexs/cognitolocal/internal/datastore"
	"github.com/aelexs/cognitolocal/internal/domain"
)

// clientsStoreID is the reserved datastore id for the shared clients store.
const clientsStoreID = "clients"

// Service is the registry of user pools.
type Service interface {
	GetUserPool(ctx context.Context, poolID string) (UserPoolService, error)
	GetUserPoolForClientID(ctx context.Context, clientID string) (UserPoolService, error)
	CreateUserPool(ctx context.Context, pool domain.UserPool) (*domain.UserPool, error)
	DeleteUserPool(ctx context.Context, poolID string) error
	ListUserPools(ctx context.Context) ([]domain.UserPool, error)
	GetAppClient(ctx context.Context, clientID string) (*domain.AppClient, error)
	DeleteAppClient(ctx context.Context, client *domain.AppClient) error
}

// CognitoService is the concrete Service backed by a datastore factory.
type CognitoService struct {
	factory       *datastore.Factory
	clients       datastore.DataStore
	clock         domain.Clock
	defaultPoolID string
}

var _ Service = (*CognitoService)(nil)

// ServiceConfig holds the dependencies for the pool registry.
type ServiceConfig struct {
	Factory *datastore.Factory
	Clock   domain.Clock

	// DefaultPoolID, when set, names a pool that is created with the
	// standard defaults on first access instead of reporting a miss.
	DefaultPoolID string
}

// NewService opens the shared clients store and returns the registry.
func NewService(ctx context.Context, cfg ServiceConfig) (*CognitoService, error) {
	clients, err := cfg.Factory.Create(ctx, clientsStoreID, map[string]any{"Clients": map[string]any{}})
	if err != nil {
		return nil, fmt.Errorf("open clients store: %w", err)
	}
	return &CognitoService{
		factory:       cfg.Factory,
		clients:       clients,
		clock:         cfg.Clock,
		defaultPoolID: cfg.DefaultPoolID,
	}, nil
}

// GetUserPool returns the service bound to poolID. The configured
// default pool is created lazily, so a fresh data dir answers for it
// without an explicit CreateUserPool call.
func (s *CognitoService) GetUserPool(ctx context.Context, poolID string) (UserPoolService, error) {
	ds, err := s.factory.Get(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if ds == nil && poolID != "" && poolID == s.defaultPoolID {
		if _, err := s.CreateUserPool(ctx, domain.UserPool{ID: poolID, Name: poolID}); err != nil {
			return nil, err
		}
		if ds, err = s.factory.Get(ctx, poolID); err != nil {
			return nil, err
		}
	}
	if ds == nil {
		return nil, domain.ResourceNotFound("User pool %s does not exist.", poolID)
	}
	return newUserPoolService(ctx, ds, s.clients, s.clock)
}

// GetUserPoolForClientID resolves the owning pool via the clients store.
func (s *CognitoService) GetUserPoolForClientID(ctx context.Context, clientID string) (UserPoolService, error) {
	client, err := s.GetAppClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return s.GetUserPool(ctx, client.UserPoolID)
}

// CreateUserPool persists a new pool document. An empty pool.ID gets a
// generated id; an empty schema gets the default schema.
func (s *CognitoService) CreateUserPool(ctx context.Context, pool domain.UserPool) (*domain.UserPool, error) {
	if pool.ID == "" {
		pool.ID = generatePoolID()
	}
	if pool.SchemaAttributes == nil {
		pool.SchemaAttributes = domain.DefaultSchema()
	}
	now := s.clock.Now()
	pool.CreationDate = now
	pool.LastModifiedDate = now

	if _, err := s.factory.Create(ctx, pool.ID, map[string]any{
		"Options": pool,
		"Users":   map[string]any{},
		"Groups":  map[string]any{},
	}); err != nil {
		return nil, err
	}
	return &pool, nil
}

// DeleteUserPool removes the pool's file and evicts the cached store.
func (s *CognitoService) DeleteUserPool(ctx context.Context, poolID string) error {
	ds, err := s.factory.Get(ctx, poolID)
	if err != nil {
		return err
	}
	if ds == nil {
		return domain.ResourceNotFound("User pool %s does not exist.", poolID)
	}
	return s.factory.Delete(ctx, poolID)
}

// ListUserPools returns the configuration of every pool on disk.
func (s *CognitoService) ListUserPools(ctx context.Context) ([]domain.UserPool, error) {
	ids, err := s.factory.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	var pools []domain.UserPool
	for _, id := range ids {
		if id == clientsStoreID {
			continue
		}
		svc, err := s.GetUserPool(ctx, id)
		if err != nil {
			return nil, err
		}
		pools = append(pools, svc.Config())
	}
	return pools, nil
}

// GetAppClient looks up a client in the shared clients store.
func (s *CognitoService) GetAppClient(ctx context.Context, clientID string) (*domain.AppClient, error) {
	client, ok, err := datastore.GetAs[domain.AppClient](ctx, s.clients, "Clients", clientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ResourceNotFound("User pool client %s does not exist.", clientID)
	}
	return &client, nil
}

// DeleteAppClient removes a client from the shared clients store.
func (s *CognitoService) DeleteAppClient(ctx context.Context, client *domain.AppClient) error {
	return s.clients.Delete(ctx, "Clients", client.ClientID)
}

// generatePoolID returns ids shaped like the hosted service's
// "<region>_<suffix>", with the local region.
func generatePoolID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return "local_" + hex.EncodeToString(b)
}
