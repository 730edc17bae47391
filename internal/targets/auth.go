package targets

import (
	"context"

	"github.com/google/uuid"

	"github.com/aelexs/cognitolocal/internal/cognito"
	"github.com/aelexs/cognitolocal/internal/domain"
	"github.com/aelexs/cognitolocal/internal/messages"
	"github.com/aelexs/cognitolocal/internal/token"
	"github.com/aelexs/cognitolocal/internal/triggers"
)

// AuthenticationResult is the token triple on the wire.
type AuthenticationResult struct {
	AccessToken  string `json:"AccessToken,omitempty"`
	IDToken      string `json:"IdToken,omitempty"`
	RefreshToken string `json:"RefreshToken,omitempty"`
	TokenType    string `json:"TokenType,omitempty"`
	ExpiresIn    int    `json:"ExpiresIn,omitempty"`
}

// InitiateAuthRequest is the InitiateAuth wire request.
type InitiateAuthRequest struct {
	ClientID       string            `json:"ClientId"`
	AuthFlow       string            `json:"AuthFlow"`
	AuthParameters map[string]string `json:"AuthParameters"`
	ClientMetadata map[string]string `json:"ClientMetadata,omitempty"`
}

// InitiateAuthResponse is the InitiateAuth wire response: either a
// challenge continuation or an authentication result.
type InitiateAuthResponse struct {
	ChallengeName        string                `json:"ChallengeName,omitempty"`
	ChallengeParameters  map[string]string     `json:"ChallengeParameters,omitempty"`
	Session              string                `json:"Session,omitempty"`
	AuthenticationResult *AuthenticationResult `json:"AuthenticationResult,omitempty"`
}

// InitiateAuth starts an authentication flow for an app client.
func (t *Targets) InitiateAuth(ctx context.Context, req *InitiateAuthRequest) (*InitiateAuthResponse, error) {
	ctx, span := tracer.Start(ctx, "InitiateAuth")
	defer span.End()
	authAttemptsTotal.Add(ctx, 1)

	switch req.AuthFlow {
	case domain.FlowUserPasswordAuth:
		pool, err := t.cognito.GetUserPoolForClientID(ctx, req.ClientID)
		if err != nil {
			return nil, err
		}
		return t.passwordAuth(ctx, pool, req.ClientID, req.AuthParameters, req.ClientMetadata)
	case domain.FlowRefreshToken, domain.FlowRefreshTokenAuth:
		refreshToken, err := refreshTokenParam(req.AuthParameters)
		if err != nil {
			return nil, err
		}
		pool, err := t.cognito.GetUserPoolForClientID(ctx, req.ClientID)
		if err != nil {
			return nil, err
		}
		return t.refreshAuth(ctx, pool, req.ClientID, refreshToken)
	default:
		return nil, domain.Unsupported("InitiateAuth with AuthFlow %s is not supported", req.AuthFlow)
	}
}

// AdminInitiateAuthRequest is the AdminInitiateAuth wire request.
type AdminInitiateAuthRequest struct {
	UserPoolID     string            `json:"UserPoolId"`
	ClientID       string            `json:"ClientId"`
	AuthFlow       string            `json:"AuthFlow"`
	AuthParameters map[string]string `json:"AuthParameters"`
	ClientMetadata map[string]string `json:"ClientMetadata,omitempty"`
}

// AdminInitiateAuthResponse is the AdminInitiateAuth wire response.
type AdminInitiateAuthResponse = InitiateAuthResponse

// AdminInitiateAuth starts an authentication flow resolved by pool id
// instead of client id.
func (t *Targets) AdminInitiateAuth(ctx context.Context, req *AdminInitiateAuthRequest) (*AdminInitiateAuthResponse, error) {
	ctx, span := tracer.Start(ctx, "AdminInitiateAuth")
	defer span.End()
	authAttemptsTotal.Add(ctx, 1)

	pool, err := t.cognito.GetUserPool(ctx, req.UserPoolID)
	if err != nil {
		return nil, err
	}

	switch req.AuthFlow {
	case domain.FlowAdminUserPasswordAuth, domain.FlowAdminNoSRPAuth:
		return t.passwordAuth(ctx, pool, req.ClientID, req.AuthParameters, req.ClientMetadata)
	case domain.FlowRefreshToken, domain.FlowRefreshTokenAuth:
		refreshToken, err := refreshTokenParam(req.AuthParameters)
		if err != nil {
			return nil, err
		}
		return t.refreshAuth(ctx, pool, req.ClientID, refreshToken)
	default:
		return nil, domain.Unsupported("AdminInitiateAuth with AuthFlow %s is not supported", req.AuthFlow)
	}
}

// passwordAuth runs the username/password flow shared by InitiateAuth
// and AdminInitiateAuth.
func (t *Targets) passwordAuth(ctx context.Context, pool cognito.UserPoolService, clientID string, authParams, clientMetadata map[string]string) (*InitiateAuthResponse, error) {
	username := authParams["USERNAME"]
	password := authParams["PASSWORD"]
	if username == "" || password == "" {
		return nil, domain.InvalidParameter("AuthParameters USERNAME and PASSWORD are required")
	}

	user, err := pool.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if user == nil && t.triggerEnabled(domain.TriggerUserMigration) {
		// Documented quirk: the hosted service hands ClientMetadata to the
		// migration trigger as validation data.
		migrated, err := t.triggers.UserMigration(ctx, triggers.UserMigrationParams{
			ClientID:       clientID,
			Source:         triggers.SourceUserMigrationAuthentication,
			Username:       username,
			Password:       password,
			UserPoolID:     pool.Config().ID,
			ValidationData: clientMetadata,
		})
		if err != nil {
			triggerFailuresTotal.Add(ctx, 1)
			return nil, domain.ErrNotAuthorized
		}
		if err := pool.SaveUser(ctx, migrated); err != nil {
			return nil, err
		}
		user = migrated
	}

	if user == nil {
		authFailuresTotal.Add(ctx, 1)
		return nil, domain.ErrNotAuthorized
	}
	if user.UserStatus == domain.StatusResetRequired {
		return nil, domain.ErrPasswordResetRequired
	}
	if user.UserStatus == domain.StatusForceChangePassword {
		return &InitiateAuthResponse{
			ChallengeName: domain.ChallengeNewPasswordRequired,
			ChallengeParameters: map[string]string{
				"USER_ID_FOR_SRP":    user.Username,
				"requiredAttributes": "[]",
				"userAttributes":     attributesJSON(user.Attributes),
			},
			Session: uuid.NewString(),
		}, nil
	}
	if user.Password != password {
		authFailuresTotal.Add(ctx, 1)
		return nil, domain.ErrInvalidPassword
	}

	config := pool.Config()
	if config.MfaConfiguration == domain.MfaOn ||
		(config.MfaConfiguration == domain.MfaOptional && len(user.MFAOptions) > 0) {
		return t.smsMfaChallenge(ctx, pool, user, clientID, clientMetadata)
	}

	result, err := t.issueTokens(ctx, pool, user, clientID, "Authentication", nil, true)
	if err != nil {
		return nil, err
	}
	if err := t.firePostAuthentication(ctx, pool, user, clientID); err != nil {
		return nil, err
	}
	return &InitiateAuthResponse{
		ChallengeName:        domain.ChallengePasswordVerifier,
		ChallengeParameters:  map[string]string{},
		AuthenticationResult: result,
	}, nil
}

// smsMfaChallenge generates and delivers an MFA code and returns the
// SMS_MFA continuation. PostAuthentication fires only after the
// challenge is answered.
func (t *Targets) smsMfaChallenge(ctx context.Context, pool cognito.UserPoolService, user *domain.User, clientID string, clientMetadata map[string]string) (*InitiateAuthResponse, error) {
	option := user.SmsMFAOption()
	if option == nil {
		return nil, domain.NotAuthorized("User has no SMS MFA delivery option")
	}
	destination, ok := user.Attributes.Get(option.AttributeName)
	if !ok {
		return nil, domain.NotAuthorized("User has no %s attribute for MFA delivery", option.AttributeName)
	}

	code := t.otp.Code()
	user.MFACode = code
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	details := messages.DeliveryDetails{
		AttributeName:  option.AttributeName,
		DeliveryMedium: option.DeliveryMedium,
		Destination:    destination,
	}
	if err := t.messages.Deliver(ctx, messages.DeliverParams{
		Source:         triggers.SourceCustomMessageAuthentication,
		ClientID:       clientID,
		UserPoolID:     pool.Config().ID,
		User:           user,
		Code:           code,
		ClientMetadata: clientMetadata,
		Details:        details,
	}); err != nil {
		return nil, err
	}
	codesDeliveredTotal.Add(ctx, 1)

	return &InitiateAuthResponse{
		ChallengeName: domain.ChallengeSmsMfa,
		ChallengeParameters: map[string]string{
			"CODE_DELIVERY_DELIVERY_MEDIUM": details.DeliveryMedium,
			"CODE_DELIVERY_DESTINATION":     details.Destination,
		},
		Session: uuid.NewString(),
	}, nil
}

// refreshTokenParam extracts REFRESH_TOKEN; a missing value is rejected
// before any resource lookup.
func refreshTokenParam(authParams map[string]string) (string, error) {
	refreshToken := authParams["REFRESH_TOKEN"]
	if refreshToken == "" {
		return "", domain.InvalidParameter("AuthParameters REFRESH_TOKEN is required")
	}
	return refreshToken, nil
}

// refreshAuth reissues access and id tokens against a refresh token. No
// new refresh token is minted.
func (t *Targets) refreshAuth(ctx context.Context, pool cognito.UserPoolService, clientID, refreshToken string) (*InitiateAuthResponse, error) {
	user, err := pool.GetUserByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if user == nil {
		authFailuresTotal.Add(ctx, 1)
		return nil, domain.NotAuthorized("Invalid Refresh Token")
	}

	result, err := t.issueTokens(ctx, pool, user, clientID, "RefreshTokens", nil, false)
	if err != nil {
		return nil, err
	}
	return &InitiateAuthResponse{AuthenticationResult: result}, nil
}

// RespondToAuthChallengeRequest is the RespondToAuthChallenge wire
// request.
type RespondToAuthChallengeRequest struct {
	ClientID           string            `json:"ClientId"`
	ChallengeName      string            `json:"ChallengeName"`
	ChallengeResponses map[string]string `json:"ChallengeResponses"`
	Session            string            `json:"Session,omitempty"`
	ClientMetadata     map[string]string `json:"ClientMetadata,omitempty"`
}

// RespondToAuthChallengeResponse is the RespondToAuthChallenge wire
// response.
type RespondToAuthChallengeResponse = InitiateAuthResponse

// RespondToAuthChallenge consumes an SMS_MFA or NEW_PASSWORD_REQUIRED
// continuation and finishes the flow with tokens.
func (t *Targets) RespondToAuthChallenge(ctx context.Context, req *RespondToAuthChallengeRequest) (*RespondToAuthChallengeResponse, error) {
	ctx, span := tracer.Start(ctx, "RespondToAuthChallenge")
	defer span.End()

	pool, err := t.cognito.GetUserPoolForClientID(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	username := req.ChallengeResponses["USERNAME"]
	user, err := pool.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotAuthorized
	}

	switch req.ChallengeName {
	case domain.ChallengeSmsMfa:
		code := req.ChallengeResponses["SMS_MFA_CODE"]
		if code == "" || user.MFACode != code {
			authFailuresTotal.Add(ctx, 1)
			return nil, domain.ErrCodeMismatch
		}
		user.MFACode = ""
	case domain.ChallengeNewPasswordRequired:
		newPassword := req.ChallengeResponses["NEW_PASSWORD"]
		if newPassword == "" {
			return nil, domain.InvalidParameter("ChallengeResponses NEW_PASSWORD is required")
		}
		user.Password = newPassword
		user.UserStatus = domain.StatusConfirmed
	default:
		return nil, domain.Unsupported("RespondToAuthChallenge with ChallengeName %s is not supported", req.ChallengeName)
	}

	user.UserLastModifiedDate = t.clock.Now()
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	result, err := t.issueTokens(ctx, pool, user, req.ClientID, "Authentication", req.ClientMetadata, true)
	if err != nil {
		return nil, err
	}
	if err := t.firePostAuthentication(ctx, pool, user, req.ClientID); err != nil {
		return nil, err
	}
	return &RespondToAuthChallengeResponse{
		ChallengeParameters:  map[string]string{},
		AuthenticationResult: result,
	}, nil
}

// RevokeTokenRequest is the RevokeToken wire request.
type RevokeTokenRequest struct {
	ClientID string `json:"ClientId"`
	Token    string `json:"Token"`
}

// RevokeTokenResponse is the (empty) RevokeToken wire response.
type RevokeTokenResponse struct{}

// RevokeToken removes a refresh token from its owner. Revoking a token
// that was never issued is a no-op.
func (t *Targets) RevokeToken(ctx context.Context, req *RevokeTokenRequest) (*RevokeTokenResponse, error) {
	ctx, span := tracer.Start(ctx, "RevokeToken")
	defer span.End()

	pool, err := t.cognito.GetUserPoolForClientID(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	user, err := pool.GetUserByRefreshToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return &RevokeTokenResponse{}, nil
	}

	user.RemoveRefreshToken(req.Token)
	user.UserLastModifiedDate = t.clock.Now()
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return &RevokeTokenResponse{}, nil
}

// issueTokens mints the token triple for user and, when a refresh token
// is included, records it on the user.
func (t *Targets) issueTokens(ctx context.Context, pool cognito.UserPoolService, user *domain.User, clientID, source string, clientMetadata map[string]string, includeRefresh bool) (*AuthenticationResult, error) {
	tokens, err := t.tokens.Generate(ctx, token.GenerateRequest{
		User:                user,
		ClientID:            clientID,
		UserPoolID:          pool.Config().ID,
		Source:              source,
		ClientMetadata:      clientMetadata,
		IncludeRefreshToken: includeRefresh,
	})
	if err != nil {
		return nil, err
	}
	if includeRefresh {
		if err := pool.StoreRefreshToken(ctx, tokens.RefreshToken, user); err != nil {
			return nil, err
		}
	}
	tokensIssuedTotal.Add(ctx, 1)

	return &AuthenticationResult{
		AccessToken:  tokens.AccessToken,
		IDToken:      tokens.IDToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(domain.TokenValidity.Seconds()),
	}, nil
}

func (t *Targets) firePostAuthentication(ctx context.Context, pool cognito.UserPoolService, user *domain.User, clientID string) error {
	if !t.triggerEnabled(domain.TriggerPostAuthentication) {
		return nil
	}
	if err := t.triggers.PostAuthentication(ctx, triggers.PostAuthenticationParams{
		ClientID:       clientID,
		Username:       user.Username,
		UserPoolID:     pool.Config().ID,
		UserAttributes: user.Attributes,
	}); err != nil {
		triggerFailuresTotal.Add(ctx, 1)
		return err
	}
	return nil
}
