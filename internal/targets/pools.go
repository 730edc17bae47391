package targets

import (
	"context"

	"github.com/aelexs/cognitolocal/internal/domain"
)

// CreateUserPoolRequest is the CreateUserPool wire request.
type CreateUserPoolRequest struct {
	PoolName               string                   `json:"PoolName"`
	UsernameAttributes     []string                 `json:"UsernameAttributes,omitempty"`
	AutoVerifiedAttributes []string                 `json:"AutoVerifiedAttributes,omitempty"`
	MfaConfiguration       string                   `json:"MfaConfiguration,omitempty"`
	Schema                 []domain.SchemaAttribute `json:"Schema,omitempty"`
	SmsVerificationMessage string                   `json:"SmsVerificationMessage,omitempty"`
	SmsConfiguration       map[string]string        `json:"SmsConfiguration,omitempty"`
}

// CreateUserPoolResponse is the CreateUserPool wire response.
type CreateUserPoolResponse struct {
	UserPool domain.UserPool `json:"UserPool"`
}

// CreateUserPool provisions a new pool with a generated id.
func (t *Targets) CreateUserPool(ctx context.Context, req *CreateUserPoolRequest) (*CreateUserPoolResponse, error) {
	ctx, span := tracer.Start(ctx, "CreateUserPool")
	defer span.End()

	pool, err := t.cognito.CreateUserPool(ctx, domain.UserPool{
		Name:                   req.PoolName,
		UsernameAttributes:     req.UsernameAttributes,
		AutoVerifiedAttributes: req.AutoVerifiedAttributes,
		MfaConfiguration:       req.MfaConfiguration,
		SchemaAttributes:       req.Schema,
		SmsVerificationMessage: req.SmsVerificationMessage,
		SmsConfiguration:       req.SmsConfiguration,
	})
	if err != nil {
		return nil, err
	}
	return &CreateUserPoolResponse{UserPool: *pool}, nil
}

// DescribeUserPoolRequest is the DescribeUserPool wire request.
type DescribeUserPoolRequest struct {
	UserPoolID string `json:"UserPoolId"`
}

// DescribeUserPoolResponse is the DescribeUserPool wire response.
type DescribeUserPoolResponse struct {
	UserPool domain.UserPool `json:"UserPool"`
}

// DescribeUserPool returns a pool's configuration.
func (t *Targets) DescribeUserPool(ctx context.Context, req *DescribeUserPoolRequest) (*DescribeUserPoolResponse, error) {
	ctx, span := tracer.Start(ctx, "DescribeUserPool")
	defer span.End()

	pool, err := t.cognito.GetUserPool(ctx, req.UserPoolID)
	if err != nil {
		return nil, err
	}
	return &DescribeUserPoolResponse{UserPool: pool.Config()}, nil
}

// DeleteUserPoolRequest is the DeleteUserPool wire request.
type DeleteUserPoolRequest struct {
	UserPoolID string `json:"UserPoolId"`
}

// DeleteUserPoolResponse is the (empty) DeleteUserPool wire response.
type DeleteUserPoolResponse struct{}

// DeleteUserPool removes a pool and all its users and groups.
func (t *Targets) DeleteUserPool(ctx context.Context, req *DeleteUserPoolRequest) (*DeleteUserPoolResponse, error) {
	ctx, span := tracer.Start(ctx, "DeleteUserPool")
	defer span.End()

	if err := t.cognito.DeleteUserPool(ctx, req.UserPoolID); err != nil {
		return nil, err
	}
	return &DeleteUserPoolResponse{}, nil
}

// ListUserPoolsRequest is the ListUserPools wire request.
type ListUserPoolsRequest struct {
	MaxResults int `json:"MaxResults,omitempty"`
}

// ListUserPoolsResponse is the ListUserPools wire response.
type ListUserPoolsResponse struct {
	UserPools []domain.UserPool `json:"UserPools"`
}

// ListUserPools returns every pool's configuration.
func (t *Targets) ListUserPools(ctx context.Context, req *ListUserPoolsRequest) (*ListUserPoolsResponse, error) {
	ctx, span := tracer.Start(ctx, "ListUserPools")
	defer span.End()

	pools, err := t.cognito.ListUserPools(ctx)
	if err != nil {
		return nil, err
	}
	if pools == nil {
		pools = []domain.UserPool{}
	}
	return &ListUserPoolsResponse{UserPools: pools}, nil
}

// GetUserPoolMfaConfigRequest is the GetUserPoolMfaConfig wire request.
type GetUserPoolMfaConfigRequest struct {
	UserPoolID string `json:"UserPoolId"`
}

// GetUserPoolMfaConfigResponse is the GetUserPoolMfaConfig wire
// response.
type GetUserPoolMfaConfigResponse struct {
	MfaConfiguration    string               `json:"MfaConfiguration"`
	SmsMfaConfiguration *SmsMfaConfiguration `json:"SmsMfaConfiguration,omitempty"`
}

// SmsMfaConfiguration echoes the pool's SMS settings.
type SmsMfaConfiguration struct {
	SmsAuthenticationMessage string            `json:"SmsAuthenticationMessage,omitempty"`
	SmsConfiguration         map[string]string `json:"SmsConfiguration,omitempty"`
}

// GetUserPoolMfaConfig returns the pool's MFA configuration.
func (t *Targets) GetUserPoolMfaConfig(ctx context.Context, req *GetUserPoolMfaConfigRequest) (*GetUserPoolMfaConfigResponse, error) {
	ctx, span := tracer.Start(ctx, "GetUserPoolMfaConfig")
	defer span.End()

	pool, err := t.cognito.GetUserPool(ctx, req.UserPoolID)
	if err != nil {
		return nil, err
	}
	config := pool.Config()

	mfa := config.MfaConfiguration
	if mfa == "" {
		mfa = domain.MfaOff
	}
	response := &GetUserPoolMfaConfigResponse{MfaConfiguration: mfa}
	if config.SmsVerificationMessage != "" || config.SmsConfiguration != nil {
		response.SmsMfaConfiguration = &SmsMfaConfiguration{
			SmsAuthenticationMessage: config.SmsVerificationMessage,
			SmsConfiguration:         config.SmsConfiguration,
		}
	}
	return response, nil
}
