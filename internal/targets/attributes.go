package targets

import (
	"context"

	"github.com/aelexs/cognitolocal/internal/cognito"
	"github.com/aelexs/cognitolocal/internal/domain"
	"github.com/aelexs/cognitolocal/internal/messages"
	"github.com/aelexs/cognitolocal/internal/triggers"
)

// validatePermittedAttributeChanges enforces the pool schema on a
// requested attribute change set: every attribute must exist in the
// schema and be mutable, and the *_verified flags may only travel with
// the attribute they verify.
func validatePermittedAttributeChanges(pool domain.UserPool, attrs domain.AttributeList) error {
	for _, attr := range attrs {
		schema := pool.SchemaAttribute(attr.Name)
		if schema == nil {
			return domain.InvalidParameter("user.%s: Attribute does not exist in the schema.", attr.Name)
		}
		if !schema.Mutable {
			return domain.InvalidParameter("user.%s: Attribute cannot be updated. (changing an immutable attribute)", attr.Name)
		}
	}
	if attrs.Has(domain.AttrEmailVerified) && !attrs.Has(domain.AttrEmail) {
		return domain.InvalidParameter("Email is required to verify/un-verify an email")
	}
	if attrs.Has(domain.AttrPhoneNumberVerified) && !attrs.Has(domain.AttrPhoneNumber) {
		return domain.InvalidParameter("Phone Number is required to verify/un-verify a phone number")
	}
	return nil
}

// applyAttributeUpdates merges attrs into the user. Changing email or
// phone_number resets the matching *_verified flag to "false" unless the
// request supplies one.
func applyAttributeUpdates(user *domain.User, attrs domain.AttributeList) {
	for _, attr := range attrs {
		user.Attributes = user.Attributes.Set(attr.Name, attr.Value)
	}
	if attrs.Has(domain.AttrEmail) && !attrs.Has(domain.AttrEmailVerified) {
		user.Attributes = user.Attributes.Set(domain.AttrEmailVerified, "false")
	}
	if attrs.Has(domain.AttrPhoneNumber) && !attrs.Has(domain.AttrPhoneNumberVerified) {
		user.Attributes = user.Attributes.Set(domain.AttrPhoneNumberVerified, "false")
	}
}

// UpdateUserAttributesRequest is the UpdateUserAttributes wire request.
type UpdateUserAttributesRequest struct {
	AccessToken    string               `json:"AccessToken"`
	UserAttributes domain.AttributeList `json:"UserAttributes"`
	ClientMetadata map[string]string    `json:"ClientMetadata,omitempty"`
}

// UpdateUserAttributesResponse is the UpdateUserAttributes wire
// response.
type UpdateUserAttributesResponse struct {
	CodeDeliveryDetailsList []messages.DeliveryDetails `json:"CodeDeliveryDetailsList,omitempty"`
}

// UpdateUserAttributes merges the requested attributes into the
// bearer-token user and re-verifies changed channels configured for
// auto-verification.
func (t *Targets) UpdateUserAttributes(ctx context.Context, req *UpdateUserAttributesRequest) (*UpdateUserAttributesResponse, error) {
	ctx, span := tracer.Start(ctx, "UpdateUserAttributes")
	defer span.End()

	pool, user, err := t.userFromAccessToken(ctx, req.AccessToken)
	if err != nil {
		return nil, err
	}
	config := pool.Config()
	if err := validatePermittedAttributeChanges(config, req.UserAttributes); err != nil {
		return nil, err
	}

	applyAttributeUpdates(user, req.UserAttributes)
	user.UserLastModifiedDate = t.clock.Now()

	var delivered []messages.DeliveryDetails
	for _, channel := range []string{domain.AttrPhoneNumber, domain.AttrEmail} {
		if !req.UserAttributes.Has(channel) || !config.AutoVerifiedAttributeEnabled(channel) {
			continue
		}
		details, ok := codeDeliveryDetails(user, []string{channel})
		if !ok {
			continue
		}

		code := t.otp.Code()
		user.AttributeVerificationCode = code
		if err := t.messages.Deliver(ctx, messages.DeliverParams{
			Source:         triggers.SourceCustomMessageUpdateUserAttribute,
			UserPoolID:     config.ID,
			User:           user,
			Code:           code,
			ClientMetadata: req.ClientMetadata,
			Details:        details,
		}); err != nil {
			return nil, err
		}
		codesDeliveredTotal.Add(ctx, 1)
		delivered = append(delivered, details)
	}

	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return &UpdateUserAttributesResponse{CodeDeliveryDetailsList: delivered}, nil
}

// AdminUpdateUserAttributesRequest is the AdminUpdateUserAttributes wire
// request.
type AdminUpdateUserAttributesRequest struct {
	UserPoolID     string               `json:"UserPoolId"`
	Username       string               `json:"Username"`
	UserAttributes domain.AttributeList `json:"UserAttributes"`
	ClientMetadata map[string]string    `json:"ClientMetadata,omitempty"`
}

// AdminUpdateUserAttributesResponse is the (empty)
// AdminUpdateUserAttributes wire response.
type AdminUpdateUserAttributesResponse struct{}

// AdminUpdateUserAttributes merges the requested attributes into a user
// by pool id and username.
func (t *Targets) AdminUpdateUserAttributes(ctx context.Context, req *AdminUpdateUserAttributesRequest) (*AdminUpdateUserAttributesResponse, error) {
	ctx, span := tracer.Start(ctx, "AdminUpdateUserAttributes")
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
	if err := validatePermittedAttributeChanges(pool.Config(), req.UserAttributes); err != nil {
		return nil, err
	}

	applyAttributeUpdates(user, req.UserAttributes)
	user.UserLastModifiedDate = t.clock.Now()
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return &AdminUpdateUserAttributesResponse{}, nil
}

// DeleteUserAttributesRequest is the DeleteUserAttributes wire request.
type DeleteUserAttributesRequest struct {
	AccessToken        string   `json:"AccessToken"`
	UserAttributeNames []string `json:"UserAttributeNames"`
}

// DeleteUserAttributesResponse is the (empty) DeleteUserAttributes wire
// response.
type DeleteUserAttributesResponse struct{}

// DeleteUserAttributes removes the named attributes from the
// bearer-token user.
func (t *Targets) DeleteUserAttributes(ctx context.Context, req *DeleteUserAttributesRequest) (*DeleteUserAttributesResponse, error) {
	ctx, span := tracer.Start(ctx, "DeleteUserAttributes")
	defer span.End()

	pool, user, err := t.userFromAccessToken(ctx, req.AccessToken)
	if err != nil {
		return nil, err
	}
	if err := t.deleteAttributes(ctx, pool, user, req.UserAttributeNames); err != nil {
		return nil, err
	}
	return &DeleteUserAttributesResponse{}, nil
}

// AdminDeleteUserAttributesRequest is the AdminDeleteUserAttributes wire
// request.
type AdminDeleteUserAttributesRequest struct {
	UserPoolID         string   `json:"UserPoolId"`
	Username           string   `json:"Username"`
	UserAttributeNames []string `json:"UserAttributeNames"`
}

// AdminDeleteUserAttributesResponse is the (empty)
// AdminDeleteUserAttributes wire response.
type AdminDeleteUserAttributesResponse struct{}

// AdminDeleteUserAttributes removes the named attributes from a user by
// pool id and username.
func (t *Targets) AdminDeleteUserAttributes(ctx context.Context, req *AdminDeleteUserAttributesRequest) (*AdminDeleteUserAttributesResponse, error) {
	ctx, span := tracer.Start(ctx, "AdminDeleteUserAttributes")
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
	if err := t.deleteAttributes(ctx, pool, user, req.UserAttributeNames); err != nil {
		return nil, err
	}
	return &AdminDeleteUserAttributesResponse{}, nil
}

func (t *Targets) deleteAttributes(ctx context.Context, pool cognito.UserPoolService, user *domain.User, names []string) error {
	config := pool.Config()
	for _, name := range names {
		schema := config.SchemaAttribute(name)
		if schema == nil {
			return domain.InvalidParameter("user.%s: Attribute does not exist in the schema.", name)
		}
		if !schema.Mutable {
			return domain.InvalidParameter("user.%s: Attribute cannot be deleted. (deleting an immutable attribute)", name)
		}
	}
	for _, name := range names {
		user.Attributes = user.Attributes.Delete(name)
	}
	user.UserLastModifiedDate = t.clock.Now()
	return pool.SaveUser(ctx, user)
}

// GetUserAttributeVerificationCodeRequest is the
// GetUserAttributeVerificationCode wire request.
type GetUserAttributeVerificationCodeRequest struct {
	AccessToken    string            `json:"AccessToken"`
	AttributeName  string            `json:"AttributeName"`
	ClientMetadata map[string]string `json:"ClientMetadata,omitempty"`
}

// GetUserAttributeVerificationCodeResponse is the
// GetUserAttributeVerificationCode wire response.
type GetUserAttributeVerificationCodeResponse struct {
	CodeDeliveryDetails messages.DeliveryDetails `json:"CodeDeliveryDetails"`
}

// GetUserAttributeVerificationCode sends a verification code for one of
// the bearer-token user's contact attributes.
func (t *Targets) GetUserAttributeVerificationCode(ctx context.Context, req *GetUserAttributeVerificationCodeRequest) (*GetUserAttributeVerificationCodeResponse, error) {
	ctx, span := tracer.Start(ctx, "GetUserAttributeVerificationCode")
	defer span.End()

	pool, user, err := t.userFromAccessToken(ctx, req.AccessToken)
	if err != nil {
		return nil, err
	}
	if req.AttributeName != domain.AttrEmail && req.AttributeName != domain.AttrPhoneNumber {
		return nil, domain.InvalidParameter("Cannot send a verification code for attribute %s", req.AttributeName)
	}
	details, ok := codeDeliveryDetails(user, []string{req.AttributeName})
	if !ok {
		return nil, domain.InvalidParameter("User has no attribute matching desired auto verified attributes")
	}

	code := t.otp.Code()
	user.AttributeVerificationCode = code
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	if err := t.messages.Deliver(ctx, messages.DeliverParams{
		Source:         triggers.SourceCustomMessageVerifyUserAttribute,
		UserPoolID:     pool.Config().ID,
		User:           user,
		Code:           code,
		ClientMetadata: req.ClientMetadata,
		Details:        details,
	}); err != nil {
		return nil, err
	}
	codesDeliveredTotal.Add(ctx, 1)

	return &GetUserAttributeVerificationCodeResponse{CodeDeliveryDetails: details}, nil
}

// VerifyUserAttributeRequest is the VerifyUserAttribute wire request.
type VerifyUserAttributeRequest struct {
	AccessToken   string `json:"AccessToken"`
	AttributeName string `json:"AttributeName"`
	Code          string `json:"Code"`
}

// VerifyUserAttributeResponse is the (empty) VerifyUserAttribute wire
// response.
type VerifyUserAttributeResponse struct{}

// VerifyUserAttribute consumes an attribute verification code and marks
// the attribute verified.
func (t *Targets) VerifyUserAttribute(ctx context.Context, req *VerifyUserAttributeRequest) (*VerifyUserAttributeResponse, error) {
	ctx, span := tracer.Start(ctx, "VerifyUserAttribute")
	defer span.End()

	pool, user, err := t.userFromAccessToken(ctx, req.AccessToken)
	if err != nil {
		return nil, err
	}
	if user.AttributeVerificationCode == "" || user.AttributeVerificationCode != req.Code {
		return nil, domain.ErrCodeMismatch
	}

	switch req.AttributeName {
	case domain.AttrEmail:
		user.Attributes = user.Attributes.Set(domain.AttrEmailVerified, "true")
	case domain.AttrPhoneNumber:
		user.Attributes = user.Attributes.Set(domain.AttrPhoneNumberVerified, "true")
	default:
		return nil, domain.InvalidParameter("Cannot verify attribute %s", req.AttributeName)
	}

	user.AttributeVerificationCode = ""
	user.UserLastModifiedDate = t.clock.Now()
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return &VerifyUserAttributeResponse{}, nil
}
