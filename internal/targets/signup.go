package targets

import (
	"context"

	"github.com/google/uuid"

	"github.com/aelexs/cognitolocal/internal/cognito"
	"github.com/aelexs/cognitolocal/internal/domain"
	"github.com/aelexs/cognitolocal/internal/messages"
	"github.com/aelexs/cognitolocal/internal/triggers"
)

// SignUpRequest is the SignUp wire request.
type SignUpRequest struct {
	ClientID       string               `json:"ClientId"`
	Username       string               `json:"Username"`
	Password       string               `json:"Password"`
	UserAttributes domain.AttributeList `json:"UserAttributes"`
	ValidationData domain.AttributeList `json:"ValidationData,omitempty"`
	ClientMetadata map[string]string    `json:"ClientMetadata,omitempty"`
}

// SignUpResponse is the SignUp wire response.
type SignUpResponse struct {
	UserConfirmed       bool                      `json:"UserConfirmed"`
	UserSub             string                    `json:"UserSub"`
	CodeDeliveryDetails *messages.DeliveryDetails `json:"CodeDeliveryDetails,omitempty"`
}

// SignUp registers a new unconfirmed user, consults the PreSignUp
// trigger, and dispatches the confirmation code.
func (t *Targets) SignUp(ctx context.Context, req *SignUpRequest) (*SignUpResponse, error) {
	ctx, span := tracer.Start(ctx, "SignUp")
	defer span.End()

	pool, err := t.cognito.GetUserPoolForClientID(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if existing, err := pool.GetUserByUsername(ctx, req.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrUsernameExists
	}

	now := t.clock.Now()
	attributes := append(domain.AttributeList{
		{Name: domain.AttrSub, Value: uuid.NewString()},
	}, req.UserAttributes...)
	user := &domain.User{
		Username:             req.Username,
		Password:             req.Password,
		UserStatus:           domain.StatusUnconfirmed,
		Enabled:              true,
		Attributes:           attributes,
		UserCreateDate:       now,
		UserLastModifiedDate: now,
		RefreshTokens:        []string{},
	}

	autoConfirmed := false
	if t.triggerEnabled(domain.TriggerPreSignUp) {
		decision, err := t.triggers.PreSignUp(ctx, triggers.PreSignUpParams{
			ClientID:       req.ClientID,
			Source:         triggers.SourcePreSignUpSignUp,
			Username:       req.Username,
			UserPoolID:     pool.Config().ID,
			UserAttributes: user.Attributes,
			ClientMetadata: req.ClientMetadata,
		})
		if err != nil {
			triggerFailuresTotal.Add(ctx, 1)
			return nil, err
		}
		if decision.AutoConfirmUser {
			user.UserStatus = domain.StatusConfirmed
			autoConfirmed = true
		}
		if decision.AutoVerifyEmail && user.Attributes.Has(domain.AttrEmail) {
			user.Attributes = user.Attributes.Set(domain.AttrEmailVerified, "true")
		}
		if decision.AutoVerifyPhone && user.Attributes.Has(domain.AttrPhoneNumber) {
			user.Attributes = user.Attributes.Set(domain.AttrPhoneNumberVerified, "true")
		}
	}

	var deliveredTo *messages.DeliveryDetails
	if channels := pool.Config().AutoVerifiedAttributes; len(channels) > 0 {
		details, ok := codeDeliveryDetails(user, channels)
		if !ok {
			return nil, domain.InvalidParameter("User has no attribute matching desired auto verified attributes")
		}

		code := t.otp.Code()
		user.ConfirmationCode = code
		if err := t.messages.Deliver(ctx, messages.DeliverParams{
			Source:         triggers.SourceCustomMessageSignUp,
			ClientID:       req.ClientID,
			UserPoolID:     pool.Config().ID,
			User:           user,
			Code:           code,
			ClientMetadata: req.ClientMetadata,
			Details:        details,
		}); err != nil {
			return nil, err
		}
		codesDeliveredTotal.Add(ctx, 1)
		deliveredTo = &details
	}

	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	signUpsTotal.Add(ctx, 1)

	if autoConfirmed && t.triggerEnabled(domain.TriggerPostConfirmation) {
		attrs := append(domain.AttributeList{}, user.Attributes...)
		attrs = attrs.Set("cognito:user_status", user.UserStatus)
		if err := t.triggers.PostConfirmation(ctx, triggers.ConfirmationParams{
			ClientID:       req.ClientID,
			Source:         triggers.SourcePostConfirmationConfirmSignUp,
			Username:       user.Username,
			UserPoolID:     pool.Config().ID,
			UserAttributes: attrs,
			ClientMetadata: req.ClientMetadata,
		}); err != nil {
			triggerFailuresTotal.Add(ctx, 1)
			return nil, err
		}
	}

	return &SignUpResponse{
		UserConfirmed:       user.UserStatus == domain.StatusConfirmed,
		UserSub:             user.Sub(),
		CodeDeliveryDetails: deliveredTo,
	}, nil
}

// ConfirmSignUpRequest is the ConfirmSignUp wire request.
type ConfirmSignUpRequest struct {
	ClientID         string            `json:"ClientId"`
	Username         string            `json:"Username"`
	ConfirmationCode string            `json:"ConfirmationCode"`
	ClientMetadata   map[string]string `json:"ClientMetadata,omitempty"`
}

// ConfirmSignUpResponse is the (empty) ConfirmSignUp wire response.
type ConfirmSignUpResponse struct{}

// ConfirmSignUp consumes the confirmation code and moves the user to
// CONFIRMED.
func (t *Targets) ConfirmSignUp(ctx context.Context, req *ConfirmSignUpRequest) (*ConfirmSignUpResponse, error) {
	ctx, span := tracer.Start(ctx, "ConfirmSignUp")
	defer span.End()

	pool, err := t.cognito.GetUserPoolForClientID(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	user, err := pool.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.NotAuthorized("Cannot confirm sign up for unknown user")
	}
	if user.UserStatus != domain.StatusUnconfirmed {
		return nil, domain.NotAuthorized("User cannot be confirmed. Current status: %s", user.UserStatus)
	}
	if user.ConfirmationCode != req.ConfirmationCode {
		return nil, domain.ErrCodeMismatch
	}

	if err := t.confirmUser(ctx, pool, user, req.ClientID, req.ClientMetadata); err != nil {
		return nil, err
	}
	return &ConfirmSignUpResponse{}, nil
}

// AdminConfirmSignUpRequest is the AdminConfirmSignUp wire request.
type AdminConfirmSignUpRequest struct {
	UserPoolID     string            `json:"UserPoolId"`
	Username       string            `json:"Username"`
	ClientMetadata map[string]string `json:"ClientMetadata,omitempty"`
}

// AdminConfirmSignUpResponse is the (empty) AdminConfirmSignUp wire
// response.
type AdminConfirmSignUpResponse struct{}

// AdminConfirmSignUp confirms a user without a code.
func (t *Targets) AdminConfirmSignUp(ctx context.Context, req *AdminConfirmSignUpRequest) (*AdminConfirmSignUpResponse, error) {
	ctx, span := tracer.Start(ctx, "AdminConfirmSignUp")
	defer span.End()

	pool, err := t.cognito.GetUserPool(ctx, req.UserPoolID)
	if err != nil {
		return nil, err
	}
	user, err := pool.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.UserNotFound("User does not exist.")
	}

	if err := t.confirmUser(ctx, pool, user, "", req.ClientMetadata); err != nil {
		return nil, err
	}
	return &AdminConfirmSignUpResponse{}, nil
}

// confirmUser applies the CONFIRMED transition shared by ConfirmSignUp
// and AdminConfirmSignUp: verify auto-verified channels, clear the code,
// persist, fire PostConfirmation.
func (t *Targets) confirmUser(ctx context.Context, pool cognito.UserPoolService, user *domain.User, clientID string, clientMetadata map[string]string) error {
	config := pool.Config()
	if config.AutoVerifiedAttributeEnabled(domain.AttrEmail) && user.Attributes.Has(domain.AttrEmail) {
		user.Attributes = user.Attributes.Set(domain.AttrEmailVerified, "true")
	}
	if config.AutoVerifiedAttributeEnabled(domain.AttrPhoneNumber) && user.Attributes.Has(domain.AttrPhoneNumber) {
		user.Attributes = user.Attributes.Set(domain.AttrPhoneNumberVerified, "true")
	}

	user.UserStatus = domain.StatusConfirmed
	user.ConfirmationCode = ""
	user.UserLastModifiedDate = t.clock.Now()
	if err := pool.SaveUser(ctx, user); err != nil {
		return err
	}

	if t.triggerEnabled(domain.TriggerPostConfirmation) {
		attrs := append(domain.AttributeList{}, user.Attributes...)
		attrs = attrs.Set("cognito:user_status", user.UserStatus)
		if err := t.triggers.PostConfirmation(ctx, triggers.ConfirmationParams{
			ClientID:       clientID,
			Source:         triggers.SourcePostConfirmationConfirmSignUp,
			Username:       user.Username,
			UserPoolID:     config.ID,
			UserAttributes: attrs,
			ClientMetadata: clientMetadata,
		}); err != nil {
			triggerFailuresTotal.Add(ctx, 1)
			return err
		}
	}
	return nil
}

// AdminCreateUserRequest is the AdminCreateUser wire request.
type AdminCreateUserRequest struct {
	UserPoolID        string               `json:"UserPoolId"`
	Username          string               `json:"Username"`
	TemporaryPassword string               `json:"TemporaryPassword,omitempty"`
	UserAttributes    domain.AttributeList `json:"UserAttributes,omitempty"`
	MessageAction     string               `json:"MessageAction,omitempty"`
	ClientMetadata    map[string]string    `json:"ClientMetadata,omitempty"`
}

// AdminCreateUserResponse is the AdminCreateUser wire response.
type AdminCreateUserResponse struct {
	User UserSummary `json:"User"`
}

// AdminCreateUser provisions a user in FORCE_CHANGE_PASSWORD with a
// temporary password and sends the invitation message unless suppressed.
func (t *Targets) AdminCreateUser(ctx context.Context, req *AdminCreateUserRequest) (*AdminCreateUserResponse, error) {
	ctx, span := tracer.Start(ctx, "AdminCreateUser")
	defer span.End()

	pool, err := t.cognito.GetUserPool(ctx, req.UserPoolID)
	if err != nil {
		return nil, err
	}
	if existing, err := pool.GetUserByUsername(ctx, req.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrUsernameExists
	}

	password := req.TemporaryPassword
	if password == "" {
		password = uuid.NewString()
	}

	now := t.clock.Now()
	user := &domain.User{
		Username:   req.Username,
		Password:   password,
		UserStatus: domain.StatusForceChangePassword,
		Enabled:    true,
		Attributes: append(domain.AttributeList{
			{Name: domain.AttrSub, Value: uuid.NewString()},
		}, req.UserAttributes...),
		UserCreateDate:       now,
		UserLastModifiedDate: now,
		RefreshTokens:        []string{},
	}
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	if req.MessageAction != "SUPPRESS" {
		channels := []string{domain.AttrPhoneNumber, domain.AttrEmail}
		if details, ok := codeDeliveryDetails(user, channels); ok {
			if err := t.messages.Deliver(ctx, messages.DeliverParams{
				Source:         triggers.SourceCustomMessageAdminCreateUser,
				UserPoolID:     req.UserPoolID,
				User:           user,
				Code:           password,
				ClientMetadata: req.ClientMetadata,
				Details:        details,
			}); err != nil {
				return nil, err
			}
			codesDeliveredTotal.Add(ctx, 1)
		}
	}

	return &AdminCreateUserResponse{User: userSummary(user)}, nil
}
