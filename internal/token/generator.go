package token

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aelexs/cognitolocal/internal/domain"
)

// Tokens is the issued triple. RefreshToken is empty when the request did
// not ask for one (token refresh flows issue only access and id tokens).
type Tokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
}

// ClaimsOverride is the PreTokenGeneration trigger's response shape.
// Overrides apply to the id token only: adds/overrides merge after the
// base claims are assembled, then suppressions delete, so a claim both
// overridden and suppressed ends up absent.
type ClaimsOverride struct {
	ClaimsToAddOrOverride map[string]any `json:"claimsToAddOrOverride"`
	ClaimsToSuppress      []string       `json:"claimsToSuppress"`
}

// PreTokenGenerationParams are the caller-side arguments handed to the
// PreTokenGeneration trigger.
type PreTokenGenerationParams struct {
	ClientID       string
	UserPoolID     string
	Username       string
	UserAttributes domain.AttributeList
	Source         string
	ClientMetadata map[string]string
}

// preTokenGeneration is the narrow consumer interface for the trigger
// subsystem; *triggers.Triggers satisfies it.
type preTokenGeneration interface {
	Enabled(trigger string) bool
	PreTokenGeneration(ctx context.Context, params PreTokenGenerationParams) (*ClaimsOverride, error)
}

// GenerateRequest describes one token issuance.
type GenerateRequest struct {
	User           *domain.User
	ClientID       string
	UserPoolID     string
	Source         string // e.g. "Authentication", "RefreshTokens"
	ClientMetadata map[string]string

	// IncludeRefreshToken controls whether a new refresh token is minted.
	// Refresh flows reissue only access and id tokens.
	IncludeRefreshToken bool
}

// Generator issues signed token triples.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Tokens, error)
}

// JWTGenerator signs RS256 tokens against a KeyStore.
type JWTGenerator struct {
	keyStore   KeyStore
	clock      domain.Clock
	issuerHost string
	triggers   preTokenGeneration
}

var _ Generator = (*JWTGenerator)(nil)

// GeneratorConfig holds configuration for creating a JWTGenerator.
type GeneratorConfig struct {
	KeyStore   KeyStore
	Clock      domain.Clock
	IssuerHost string // e.g. "http://localhost:9229"
	Triggers   preTokenGeneration
}

// NewGenerator creates a JWTGenerator.
func NewGenerator(cfg GeneratorConfig) *JWTGenerator {
	return &JWTGenerator{
		keyStore:   cfg.KeyStore,
		clock:      cfg.Clock,
		issuerHost: cfg.IssuerHost,
		triggers:   cfg.Triggers,
	}
}

// Generate mints the token triple for req.User.
func (g *JWTGenerator) Generate(ctx context.Context, req GenerateRequest) (*Tokens, error) {
	privateKey, keyID, err := g.keyStore.SigningKey()
	if err != nil {
		return nil, fmt.Errorf("get signing key: %w", err)
	}

	now := g.clock.Now().UTC()
	authTime := now.Unix()
	expiry := now.Add(domain.TokenValidity).Unix()
	issuer := fmt.Sprintf("%s/%s", g.issuerHost, req.UserPoolID)

	idClaims := jwt.MapClaims{
		"sub":              req.User.Sub(),
		"aud":              req.ClientID,
		"iss":              issuer,
		"token_use":        "id",
		"auth_time":        authTime,
		"iat":              authTime,
		"exp":              expiry,
		"jti":              uuid.NewString(),
		"cognito:username": req.User.Username,
	}
	for _, attr := range req.User.Attributes {
		if attr.Name == domain.AttrSub {
			continue
		}
		idClaims[attr.Name] = attr.Value
	}

	if g.triggers != nil && g.triggers.Enabled(domain.TriggerPreTokenGeneration) {
		override, err := g.triggers.PreTokenGeneration(ctx, PreTokenGenerationParams{
			ClientID:       req.ClientID,
			UserPoolID:     req.UserPoolID,
			Username:       req.User.Username,
			UserAttributes: req.User.Attributes,
			Source:         req.Source,
			ClientMetadata: req.ClientMetadata,
		})
		if err != nil {
			return nil, err
		}
		if override != nil {
			for name, value := range override.ClaimsToAddOrOverride {
				idClaims[name] = value
			}
			for _, name := range override.ClaimsToSuppress {
				delete(idClaims, name)
			}
		}
	}

	accessClaims := jwt.MapClaims{
		"sub":       req.User.Sub(),
		"iss":       issuer,
		"client_id": req.ClientID,
		"username":  req.User.Username,
		"token_use": "access",
		"auth_time": authTime,
		"iat":       authTime,
		"exp":       expiry,
		"jti":       uuid.NewString(),
	}

	idToken, err := g.sign(idClaims, privateKey, keyID)
	if err != nil {
		return nil, fmt.Errorf("sign id token: %w", err)
	}
	accessToken, err := g.sign(accessClaims, privateKey, keyID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	tokens := &Tokens{AccessToken: accessToken, IDToken: idToken}
	if req.IncludeRefreshToken {
		tokens.RefreshToken = uuid.NewString()
	}
	return tokens, nil
}

func (g *JWTGenerator) sign(claims jwt.MapClaims, key any, keyID string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = keyID
	return t.SignedString(key)
}

// ParseAccessToken validates an access token's signature and expiry
// against the key store and returns its claims. Targets use this to
// authenticate bearer-token operations (GetUser, ChangePassword, ...).
func ParseAccessToken(ks KeyStore, clock domain.Clock, tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("missing kid in token header")
		}
		return ks.PublicKey(kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithTimeFunc(clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	return claims, nil
}
