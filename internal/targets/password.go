package targets

import (
	"context"

	"github.com/aelexs/cognitolocal/internal/domain"
	"github.com/aelexs/cognitolocal/internal/messages"
	"github.com/aelexs/cognitolocal/internal/triggers"
)

// ForgotPasswordRequest is the ForgotPassword wire request.
type ForgotPasswordRequest struct {
	ClientID       string            `json:"ClientId"`
	Username       string            `json:"Username"`
	ClientMetadata map[string]string `json:"ClientMetadata,omitempty"`
}

// ForgotPasswordResponse is the ForgotPassword wire response.
type ForgotPasswordResponse struct {
	CodeDeliveryDetails messages.DeliveryDetails `json:"CodeDeliveryDetails"`
}

// ForgotPassword dispatches a reset code and moves the user to
// RESET_REQUIRED.
func (t *Targets) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) (*ForgotPasswordResponse, error) {
	ctx, span := tracer.Start(ctx, "ForgotPassword")
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
		return nil, domain.UserNotFound("User does not exist.")
	}

	details, ok := codeDeliveryDetails(user, []string{domain.AttrPhoneNumber, domain.AttrEmail})
	if !ok {
		return nil, domain.InvalidParameter("User has no delivery channel for the reset code")
	}

	code := t.otp.Code()
	user.ConfirmationCode = code
	user.UserStatus = domain.StatusResetRequired
	user.UserLastModifiedDate = t.clock.Now()
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	if err := t.messages.Deliver(ctx, messages.DeliverParams{
		Source:         triggers.SourceCustomMessageForgotPassword,
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

	return &ForgotPasswordResponse{CodeDeliveryDetails: details}, nil
}

// ConfirmForgotPasswordRequest is the ConfirmForgotPassword wire request.
type ConfirmForgotPasswordRequest struct {
	ClientID         string            `json:"ClientId"`
	Username         string            `json:"Username"`
	ConfirmationCode string            `json:"ConfirmationCode"`
	Password         string            `json:"Password"`
	ClientMetadata   map[string]string `json:"ClientMetadata,omitempty"`
}

// ConfirmForgotPasswordResponse is the (empty) ConfirmForgotPassword
// wire response.
type ConfirmForgotPasswordResponse struct{}

// ConfirmForgotPassword consumes the reset code and replaces the
// password.
func (t *Targets) ConfirmForgotPassword(ctx context.Context, req *ConfirmForgotPasswordRequest) (*ConfirmForgotPasswordResponse, error) {
	ctx, span := tracer.Start(ctx, "ConfirmForgotPassword")
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
		return nil, domain.UserNotFound("User does not exist.")
	}
	if user.ConfirmationCode != req.ConfirmationCode {
		return nil, domain.ErrCodeMismatch
	}

	user.Password = req.Password
	user.UserStatus = domain.StatusConfirmed
	user.ConfirmationCode = ""
	user.UserLastModifiedDate = t.clock.Now()
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	if t.triggerEnabled(domain.TriggerPostConfirmation) {
		attrs := append(domain.AttributeList{}, user.Attributes...)
		attrs = attrs.Set("cognito:user_status", user.UserStatus)
		if err := t.triggers.PostConfirmation(ctx, triggers.ConfirmationParams{
			ClientID:       req.ClientID,
			Source:         triggers.SourcePostConfirmationConfirmForgotPassword,
			Username:       user.Username,
			UserPoolID:     pool.Config().ID,
			UserAttributes: attrs,
			ClientMetadata: req.ClientMetadata,
		}); err != nil {
			triggerFailuresTotal.Add(ctx, 1)
			return nil, err
		}
	}
	return &ConfirmForgotPasswordResponse{}, nil
}

// ChangePasswordRequest is the ChangePassword wire request.
type ChangePasswordRequest struct {
	AccessToken      string `json:"AccessToken"`
	PreviousPassword string `json:"PreviousPassword"`
	ProposedPassword string `json:"ProposedPassword"`
}

// ChangePasswordResponse is the (empty) ChangePassword wire response.
type ChangePasswordResponse struct{}

// ChangePassword replaces the bearer-token user's password after
// verifying the previous one.
func (t *Targets) ChangePassword(ctx context.Context, req *ChangePasswordRequest) (*ChangePasswordResponse, error) {
	ctx, span := tracer.Start(ctx, "ChangePassword")
	defer span.End()

	pool, user, err := t.userFromAccessToken(ctx, req.AccessToken)
	if err != nil {
		return nil, err
	}
	if user.Password != req.PreviousPassword {
		return nil, domain.ErrInvalidPassword
	}

	user.Password = req.ProposedPassword
	user.UserLastModifiedDate = t.clock.Now()
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return &ChangePasswordResponse{}, nil
}

// AdminSetUserPasswordRequest is the AdminSetUserPassword wire request.
type AdminSetUserPasswordRequest struct {
	UserPoolID string `json:"UserPoolId"`
	Username   string `json:"Username"`
	Password   string `json:"Password"`
	Permanent  bool   `json:"Permanent"`
}

// AdminSetUserPasswordResponse is the (empty) AdminSetUserPassword wire
// response.
type AdminSetUserPasswordResponse struct{}

// AdminSetUserPassword replaces a user's password. Permanent confirms
// the user; otherwise the next sign-in forces a change.
func (t *Targets) AdminSetUserPassword(ctx context.Context, req *AdminSetUserPasswordRequest) (*AdminSetUserPasswordResponse, error) {
	ctx, span := tracer.Start(ctx, "AdminSetUserPassword")
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

	user.Password = req.Password
	if req.Permanent {
		user.UserStatus = domain.StatusConfirmed
	} else {
		user.UserStatus = domain.StatusForceChangePassword
	}
	user.UserLastModifiedDate = t.clock.Now()
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return &AdminSetUserPasswordResponse{}, nil
}
