package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/cognitolocal/internal/domain"
	"github.com/aelexs/cognitolocal/internal/domain/domaintest"
	"github.com/aelexs/cognitolocal/internal/token"
)

type fakePreToken struct {
	enabled  bool
	override *token.ClaimsOverride
	err      error
	gotParams *token.PreTokenGenerationParams
}

func (f *fakePreToken) Enabled(string) bool { return f.enabled }

func (f *fakePreToken) PreTokenGeneration(_ context.Context, params token.PreTokenGenerationParams) (*token.ClaimsOverride, error) {
	f.gotParams = &params
	return f.override, f.err
}

func testUser() *domain.User {
	return &domain.User{
		Username:   "alice",
		UserStatus: domain.StatusConfirmed,
		Enabled:    true,
		Attributes: domain.AttributeList{
			{Name: domain.AttrSub, Value: "11111111-2222-3333-4444-555555555555"},
			{Name: domain.AttrEmail, Value: "alice@example.com"},
		},
	}
}

func newGenerator(t *testing.T, hook *fakePreToken) (*token.JWTGenerator, token.KeyStore, *domaintest.FakeClock) {
	t.Helper()
	ks, err := token.NewGeneratedKeyStore()
	require.NoError(t, err)
	clock := domaintest.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	cfg := token.GeneratorConfig{
		KeyStore:   ks,
		Clock:      clock,
		IssuerHost: "http://localhost:9229",
	}
	if hook != nil {
		cfg.Triggers = hook
	}
	return token.NewGenerator(cfg), ks, clock
}

func decode(t *testing.T, ks token.KeyStore, clock domain.Clock, raw string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		kid, _ := tok.Header["kid"].(string)
		return ks.PublicKey(kid)
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithTimeFunc(clock.Now))
	require.NoError(t, err)
	return claims
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("id token carries user attributes and pool issuer", func(t *testing.T) {
		gen, ks, clock := newGenerator(t, nil)

		tokens, err := gen.Generate(ctx, token.GenerateRequest{
			User:                testUser(),
			ClientID:            "client1",
			UserPoolID:          "local_pool",
			Source:              "Authentication",
			IncludeRefreshToken: true,
		})
		require.NoError(t, err)

		claims := decode(t, ks, clock, tokens.IDToken)
		assert.Equal(t, "11111111-2222-3333-4444-555555555555", claims["sub"])
		assert.Equal(t, "client1", claims["aud"])
		assert.Equal(t, "http://localhost:9229/local_pool", claims["iss"])
		assert.Equal(t, "id", claims["token_use"])
		assert.Equal(t, "alice", claims["cognito:username"])
		assert.Equal(t, "alice@example.com", claims["email"])

		iat := int64(claims["iat"].(float64))
		exp := int64(claims["exp"].(float64))
		assert.Equal(t, clock.Now().Unix(), iat)
		assert.Equal(t, clock.Now().Add(domain.TokenValidity).Unix(), exp)

		_, err = uuid.Parse(claims["jti"].(string))
		assert.NoError(t, err)
	})

	t.Run("access token has no custom attributes", func(t *testing.T) {
		gen, ks, clock := newGenerator(t, nil)

		tokens, err := gen.Generate(ctx, token.GenerateRequest{
			User: testUser(), ClientID: "client1", UserPoolID: "p", Source: "Authentication",
		})
		require.NoError(t, err)

		claims := decode(t, ks, clock, tokens.AccessToken)
		assert.Equal(t, "access", claims["token_use"])
		assert.Equal(t, "client1", claims["client_id"])
		assert.Equal(t, "alice", claims["username"])
		assert.NotContains(t, claims, "email")
	})

	t.Run("refresh token only when requested", func(t *testing.T) {
		gen, _, _ := newGenerator(t, nil)

		with, err := gen.Generate(ctx, token.GenerateRequest{
			User: testUser(), ClientID: "c", UserPoolID: "p", IncludeRefreshToken: true,
		})
		require.NoError(t, err)
		_, err = uuid.Parse(with.RefreshToken)
		assert.NoError(t, err)

		without, err := gen.Generate(ctx, token.GenerateRequest{
			User: testUser(), ClientID: "c", UserPoolID: "p",
		})
		require.NoError(t, err)
		assert.Empty(t, without.RefreshToken)
	})
}

func TestGeneratePreTokenGeneration(t *testing.T) {
	ctx := context.Background()

	t.Run("override merges then suppression deletes", func(t *testing.T) {
		hook := &fakePreToken{
			enabled: true,
			override: &token.ClaimsOverride{
				ClaimsToAddOrOverride: map[string]any{
					"custom:tier": "gold",
					"email":       "overridden@example.com",
					"doomed":      "x",
				},
				ClaimsToSuppress: []string{"doomed", "cognito:username"},
			},
		}
		gen, ks, clock := newGenerator(t, hook)

		tokens, err := gen.Generate(ctx, token.GenerateRequest{
			User: testUser(), ClientID: "c1", UserPoolID: "p1", Source: "Authentication",
		})
		require.NoError(t, err)

		claims := decode(t, ks, clock, tokens.IDToken)
		assert.Equal(t, "gold", claims["custom:tier"])
		assert.Equal(t, "overridden@example.com", claims["email"])
		assert.NotContains(t, claims, "doomed", "suppression wins over override")
		assert.NotContains(t, claims, "cognito:username")

		require.NotNil(t, hook.gotParams)
		assert.Equal(t, "c1", hook.gotParams.ClientID)
		assert.Equal(t, "alice", hook.gotParams.Username)
	})

	t.Run("disabled hook is not consulted", func(t *testing.T) {
		hook := &fakePreToken{enabled: false}
		gen, ks, clock := newGenerator(t, hook)

		tokens, err := gen.Generate(ctx, token.GenerateRequest{
			User: testUser(), ClientID: "c1", UserPoolID: "p1",
		})
		require.NoError(t, err)
		assert.Nil(t, hook.gotParams)

		claims := decode(t, ks, clock, tokens.IDToken)
		assert.Equal(t, "alice", claims["cognito:username"])
	})

	t.Run("hook failure aborts issuance", func(t *testing.T) {
		hook := &fakePreToken{enabled: true, err: domain.ErrUserLambdaValidation}
		gen, _, _ := newGenerator(t, hook)

		_, err := gen.Generate(ctx, token.GenerateRequest{
			User: testUser(), ClientID: "c1", UserPoolID: "p1",
		})
		assert.ErrorIs(t, err, domain.ErrUserLambdaValidation)
	})
}

func TestParseAccessToken(t *testing.T) {
	ctx := context.Background()
	gen, ks, clock := newGenerator(t, nil)

	tokens, err := gen.Generate(ctx, token.GenerateRequest{
		User: testUser(), ClientID: "c", UserPoolID: "p",
	})
	require.NoError(t, err)

	claims, err := token.ParseAccessToken(ks, clock, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims["username"])

	t.Run("expired token rejected", func(t *testing.T) {
		clock.Advance(domain.TokenValidity + time.Hour)
		_, err := token.ParseAccessToken(ks, clock, tokens.AccessToken)
		assert.Error(t, err)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := token.ParseAccessToken(ks, clock, "not-a-jwt")
		assert.Error(t, err)
	})
}
