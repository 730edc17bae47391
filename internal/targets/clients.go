package targets

import (
	"context"

	"github.com/aelexs/cognitolocal/internal/domain"
)

// CreateUserPoolClientRequest is the CreateUserPoolClient wire request.
type CreateUserPoolClientRequest struct {
	UserPoolID string `json:"UserPoolId"`
	ClientName string `json:"ClientName"`
}

// CreateUserPoolClientResponse is the CreateUserPoolClient wire
// response.
type CreateUserPoolClientResponse struct {
	UserPoolClient domain.AppClient `json:"UserPoolClient"`
}

// CreateUserPoolClient registers a new app client for a pool.
func (t *Targets) CreateUserPoolClient(ctx context.Context, req *CreateUserPoolClientRequest) (*CreateUserPoolClientResponse, error) {
	ctx, span := tracer.Start(ctx, "CreateUserPoolClient")
	defer span.End()

	pool, err := t.cognito.GetUserPool(ctx, req.UserPoolID)
	if err != nil {
		return nil, err
	}
	client, err := pool.CreateAppClient(ctx, req.ClientName)
	if err != nil {
		return nil, err
	}
	return &CreateUserPoolClientResponse{UserPoolClient: *client}, nil
}

// DescribeUserPoolClientRequest is the DescribeUserPoolClient wire
// request.
type DescribeUserPoolClientRequest struct {
	UserPoolID string `json:"UserPoolId"`
	ClientID   string `json:"ClientId"`
}

// DescribeUserPoolClientResponse is the DescribeUserPoolClient wire
// response.
type DescribeUserPoolClientResponse struct {
	UserPoolClient domain.AppClient `json:"UserPoolClient"`
}

// DescribeUserPoolClient returns an app client's configuration.
func (t *Targets) DescribeUserPoolClient(ctx context.Context, req *DescribeUserPoolClientRequest) (*DescribeUserPoolClientResponse, error) {
	ctx, span := tracer.Start(ctx, "DescribeUserPoolClient")
	defer span.End()

	client, err := t.cognito.GetAppClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if req.UserPoolID != "" && client.UserPoolID != req.UserPoolID {
		return nil, domain.ResourceNotFound("User pool client %s does not exist.", req.ClientID)
	}
	return &DescribeUserPoolClientResponse{UserPoolClient: *client}, nil
}

// DeleteUserPoolClientRequest is the DeleteUserPoolClient wire request.
type DeleteUserPoolClientRequest struct {
	UserPoolID string `json:"UserPoolId"`
	ClientID   string `json:"ClientId"`
}

// DeleteUserPoolClientResponse is the (empty) DeleteUserPoolClient wire
// response.
type DeleteUserPoolClientResponse struct{}

// DeleteUserPoolClient removes an app client.
func (t *Targets) DeleteUserPoolClient(ctx context.Context, req *DeleteUserPoolClientRequest) (*DeleteUserPoolClientResponse, error) {
	ctx, span := tracer.Start(ctx, "DeleteUserPoolClient")
	defer span.End()

	client, err := t.cognito.GetAppClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if err := t.cognito.DeleteAppClient(ctx, client); err != nil {
		return nil, err
	}
	return &DeleteUserPoolClientResponse{}, nil
}
