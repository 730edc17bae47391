package triggers

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/aelexs/cognitolocal/internal/domain"
	"github.com/aelexs/cognitolocal/internal/token"
)

// Placeholders that custom message templates interpolate.
const (
	CodeParameter     = "{####}"
	UsernameParameter = "{username}"
)

// Trigger sources, one set per trigger. An unknown source is rejected
// before any function is invoked.
const (
	SourcePreSignUpSignUp           = "PreSignUp_SignUp"
	SourcePreSignUpAdminCreateUser  = "PreSignUp_AdminCreateUser"
	SourcePreSignUpExternalProvider = "PreSignUp_ExternalProvider"

	SourcePostConfirmationConfirmSignUp         = "PostConfirmation_ConfirmSignUp"
	SourcePostConfirmationConfirmForgotPassword = "PostConfirmation_ConfirmForgotPassword"

	SourcePostAuthentication = "PostAuthentication_Authentication"

	SourceUserMigrationAuthentication = "UserMigration_Authentication"
	SourceUserMigrationForgotPassword = "UserMigration_ForgotPassword"

	SourceTokenGenerationHostedAuth           = "TokenGeneration_HostedAuth"
	SourceTokenGenerationAuthentication       = "TokenGeneration_Authentication"
	SourceTokenGenerationNewPasswordChallenge = "TokenGeneration_NewPasswordChallenge"
	SourceTokenGenerationAuthenticateDevice   = "TokenGeneration_AuthenticateDevice"
	SourceTokenGenerationRefreshTokens        = "TokenGeneration_RefreshTokens"

	SourceCustomMessageSignUp              = "CustomMessage_SignUp"
	SourceCustomMessageAdminCreateUser     = "CustomMessage_AdminCreateUser"
	SourceCustomMessageResendCode          = "CustomMessage_ResendCode"
	SourceCustomMessageForgotPassword      = "CustomMessage_ForgotPassword"
	SourceCustomMessageUpdateUserAttribute = "CustomMessage_UpdateUserAttribute"
	SourceCustomMessageVerifyUserAttribute = "CustomMessage_VerifyUserAttribute"
	SourceCustomMessageAuthentication      = "CustomMessage_Authentication"
)

var (
	preSignUpSources = sourceSet(
		SourcePreSignUpSignUp,
		SourcePreSignUpAdminCreateUser,
		SourcePreSignUpExternalProvider,
	)
	postConfirmationSources = sourceSet(
		SourcePostConfirmationConfirmSignUp,
		SourcePostConfirmationConfirmForgotPassword,
	)
	userMigrationSources = sourceSet(
		SourceUserMigrationAuthentication,
		SourceUserMigrationForgotPassword,
	)
	tokenGenerationSources = sourceSet(
		SourceTokenGenerationHostedAuth,
		SourceTokenGenerationAuthentication,
		SourceTokenGenerationNewPasswordChallenge,
		SourceTokenGenerationAuthenticateDevice,
		SourceTokenGenerationRefreshTokens,
	)
	customMessageSources = sourceSet(
		SourceCustomMessageSignUp,
		SourceCustomMessageAdminCreateUser,
		SourceCustomMessageResendCode,
		SourceCustomMessageForgotPassword,
		SourceCustomMessageUpdateUserAttribute,
		SourceCustomMessageVerifyUserAttribute,
		SourceCustomMessageAuthentication,
	)
)

func sourceSet(sources ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		set[s] = struct{}{}
	}
	return set
}

// Triggers is the typed facade over the configured hook functions. Each
// method builds the event for its trigger, invokes the function, and
// decodes the response into the shape the calling flow consumes.
type Triggers struct {
	lambda Lambda
	clock  domain.Clock
	logger *slog.Logger
}

// New creates a Triggers facade.
func New(lambda Lambda, clock domain.Clock, logger *slog.Logger) *Triggers {
	return &Triggers{lambda: lambda, clock: clock, logger: logger}
}

// Triggers must satisfy the token generator's hook interface.
var _ interface {
	Enabled(trigger string) bool
	PreTokenGeneration(ctx context.Context, params token.PreTokenGenerationParams) (*token.ClaimsOverride, error)
} = (*Triggers)(nil)

// Enabled reports whether a function is configured for trigger.
func (t *Triggers) Enabled(trigger string) bool {
	return t.lambda.Enabled(trigger)
}

// PreSignUpParams are the inputs to the PreSignUp trigger.
type PreSignUpParams struct {
	ClientID       string
	Source         string
	Username       string
	UserPoolID     string
	UserAttributes domain.AttributeList
	ClientMetadata map[string]string
	ValidationData map[string]string
}

// PreSignUpResponse is the trigger's decision on auto-confirmation and
// auto-verification of the new user.
type PreSignUpResponse struct {
	AutoConfirmUser bool `json:"autoConfirmUser"`
	AutoVerifyEmail bool `json:"autoVerifyEmail"`
	AutoVerifyPhone bool `json:"autoVerifyPhone"`
}

// PreSignUp invokes the PreSignUp trigger before a new user is persisted.
func (t *Triggers) PreSignUp(ctx context.Context, params PreSignUpParams) (*PreSignUpResponse, error) {
	if _, ok := preSignUpSources[params.Source]; !ok {
		return nil, domain.Unsupported("%s is not a valid PreSignUp trigger source", params.Source)
	}

	response, err := t.lambda.Invoke(ctx, domain.TriggerPreSignUp, &Event{
		Version:       "0",
		TriggerSource: params.Source,
		Region:        "local",
		UserPoolID:    params.UserPoolID,
		UserName:      params.Username,
		CallerContext: callerContext(params.ClientID),
		Request: map[string]any{
			"userAttributes": params.UserAttributes.ToMap(),
			"validationData": params.ValidationData,
			"clientMetadata": params.ClientMetadata,
		},
		Response: map[string]any{},
	})
	if err != nil {
		return nil, err
	}
	return decodeResponse[*PreSignUpResponse](response)
}

// ConfirmationParams are the inputs to the PostConfirmation trigger.
type ConfirmationParams struct {
	ClientID       string
	Source         string
	Username       string
	UserPoolID     string
	UserAttributes domain.AttributeList
	ClientMetadata map[string]string
}

// PostConfirmation invokes the PostConfirmation trigger after a user is
// confirmed. The trigger's response is ignored.
func (t *Triggers) PostConfirmation(ctx context.Context, params ConfirmationParams) error {
	if _, ok := postConfirmationSources[params.Source]; !ok {
		return domain.Unsupported("%s is not a valid PostConfirmation trigger source", params.Source)
	}

	_, err := t.lambda.Invoke(ctx, domain.TriggerPostConfirmation, &Event{
		Version:       "0",
		TriggerSource: params.Source,
		Region:        "local",
		UserPoolID:    params.UserPoolID,
		UserName:      params.Username,
		CallerContext: callerContext(params.ClientID),
		Request: map[string]any{
			"userAttributes": params.UserAttributes.ToMap(),
			"clientMetadata": params.ClientMetadata,
		},
		Response: map[string]any{},
	})
	return err
}

// PostAuthenticationParams are the inputs to the PostAuthentication
// trigger.
type PostAuthenticationParams struct {
	ClientID       string
	Username       string
	UserPoolID     string
	UserAttributes domain.AttributeList
	ClientMetadata map[string]string
}

// PostAuthentication invokes the PostAuthentication trigger after a
// successful sign-in. The trigger's response is ignored.
func (t *Triggers) PostAuthentication(ctx context.Context, params PostAuthenticationParams) error {
	_, err := t.lambda.Invoke(ctx, domain.TriggerPostAuthentication, &Event{
		Version:       "0",
		TriggerSource: SourcePostAuthentication,
		Region:        "local",
		UserPoolID:    params.UserPoolID,
		UserName:      params.Username,
		CallerContext: callerContext(params.ClientID),
		Request: map[string]any{
			"userAttributes": params.UserAttributes.ToMap(),
			"newDeviceUsed":  false,
			"clientMetadata": params.ClientMetadata,
		},
		Response: map[string]any{},
	})
	return err
}

// UserMigrationParams are the inputs to the UserMigration trigger.
type UserMigrationParams struct {
	ClientID       string
	Source         string
	Username       string
	Password       string
	UserPoolID     string
	UserAttributes domain.AttributeList
	ClientMetadata map[string]string
	ValidationData map[string]string
}

type userMigrationResponse struct {
	UserAttributes  map[string]string `json:"userAttributes"`
	FinalUserStatus string            `json:"finalUserStatus"`
	MessageAction   string            `json:"messageAction"`
}

// UserMigration invokes the UserMigration trigger for an unknown
// username and builds the migrated user record from its response. The
// caller persists the returned user.
func (t *Triggers) UserMigration(ctx context.Context, params UserMigrationParams) (*domain.User, error) {
	if _, ok := userMigrationSources[params.Source]; !ok {
		return nil, domain.Unsupported("%s is not a valid UserMigration trigger source", params.Source)
	}

	response, err := t.lambda.Invoke(ctx, domain.TriggerUserMigration, &Event{
		Version:       "0",
		TriggerSource: params.Source,
		Region:        "local",
		UserPoolID:    params.UserPoolID,
		UserName:      params.Username,
		CallerContext: callerContext(params.ClientID),
		Request: map[string]any{
			"userAttributes": params.UserAttributes.ToMap(),
			"password":       params.Password,
			"validationData": params.ValidationData,
			"clientMetadata": params.ClientMetadata,
		},
		Response: map[string]any{},
	})
	if err != nil {
		return nil, err
	}

	decoded, err := decodeResponse[userMigrationResponse](response)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(decoded.UserAttributes))
	for name := range decoded.UserAttributes {
		if name != domain.AttrSub {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	attributes := domain.AttributeList{{Name: domain.AttrSub, Value: uuid.NewString()}}
	for _, name := range names {
		attributes = attributes.Set(name, decoded.UserAttributes[name])
	}

	status := decoded.FinalUserStatus
	if status == "" {
		status = domain.StatusConfirmed
	}

	now := t.clock.Now()
	return &domain.User{
		Username:             params.Username,
		Password:             params.Password,
		Attributes:           attributes,
		Enabled:              true,
		UserStatus:           status,
		UserCreateDate:       now,
		UserLastModifiedDate: now,
	}, nil
}

// CustomMessageParams are the inputs to the CustomMessage trigger.
type CustomMessageParams struct {
	ClientID       string
	Source         string
	Username       string
	UserPoolID     string
	UserAttributes domain.AttributeList
	ClientMetadata map[string]string
	Code           string
}

// CustomMessageResponse carries the raw templates returned by the
// trigger. Placeholders are still present; message delivery interpolates
// them.
type CustomMessageResponse struct {
	SMSMessage   string `json:"smsMessage"`
	EmailMessage string `json:"emailMessage"`
	EmailSubject string `json:"emailSubject"`
}

// CustomMessage invokes the CustomMessage trigger to customize an
// outgoing message.
func (t *Triggers) CustomMessage(ctx context.Context, params CustomMessageParams) (*CustomMessageResponse, error) {
	if _, ok := customMessageSources[params.Source]; !ok {
		return nil, domain.Unsupported("%s is not a valid CustomMessage trigger source", params.Source)
	}

	response, err := t.lambda.Invoke(ctx, domain.TriggerCustomMessage, &Event{
		Version:       "0",
		TriggerSource: params.Source,
		Region:        "local",
		UserPoolID:    params.UserPoolID,
		UserName:      params.Username,
		CallerContext: callerContext(params.ClientID),
		Request: map[string]any{
			"userAttributes":    params.UserAttributes.ToMap(),
			"codeParameter":     CodeParameter,
			"usernameParameter": UsernameParameter,
			"clientMetadata":    params.ClientMetadata,
		},
		Response: map[string]any{},
	})
	if err != nil {
		return nil, err
	}
	return decodeResponse[*CustomMessageResponse](response)
}

type claimsOverrideDetails struct {
	ClaimsOverrideDetails *token.ClaimsOverride `json:"claimsOverrideDetails"`
}

// PreTokenGeneration invokes the PreTokenGeneration trigger before id
// token claims are finalized.
func (t *Triggers) PreTokenGeneration(ctx context.Context, params token.PreTokenGenerationParams) (*token.ClaimsOverride, error) {
	source := "TokenGeneration_" + params.Source
	if _, ok := tokenGenerationSources[source]; !ok {
		return nil, domain.Unsupported("%s is not a valid TokenGeneration trigger source", source)
	}

	response, err := t.lambda.Invoke(ctx, domain.TriggerPreTokenGeneration, &Event{
		Version:       "0",
		TriggerSource: source,
		Region:        "local",
		UserPoolID:    params.UserPoolID,
		UserName:      params.Username,
		CallerContext: callerContext(params.ClientID),
		Request: map[string]any{
			"userAttributes": params.UserAttributes.ToMap(),
			"groupConfiguration": map[string]any{
				"groupsToOverride":   []string{},
				"iamRolesToOverride": []string{},
				"preferredRole":      nil,
			},
			"clientMetadata": params.ClientMetadata,
		},
		Response: map[string]any{},
	})
	if err != nil {
		return nil, err
	}

	decoded, err := decodeResponse[claimsOverrideDetails](response)
	if err != nil {
		return nil, err
	}
	return decoded.ClaimsOverrideDetails, nil
}

func callerContext(clientID string) CallerContext {
	return CallerContext{AwsSdkVersion: "aws-sdk-unknown-unknown", ClientID: clientID}
}

// decodeResponse re-marshals the loosely-typed response map into the
// trigger's typed response shape.
func decodeResponse[T any](response map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(response)
	if err != nil {
		return out, domain.ErrInvalidLambdaResponse
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, domain.ErrInvalidLambdaResponse
	}
	return out, nil
}
