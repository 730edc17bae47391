package targets

import (
	"context"
	"time"

	"github.com/aelexs/cognitolocal/internal/domain"
)

// UserSummary is the user shape returned by AdminCreateUser and
// ListUsers: attributes under "Attributes".
type UserSummary struct {
	Username             string               `json:"Username"`
	Attributes           domain.AttributeList `json:"Attributes"`
	UserStatus           string               `json:"UserStatus"`
	Enabled              bool                 `json:"Enabled"`
	UserCreateDate       time.Time            `json:"UserCreateDate"`
	UserLastModifiedDate time.Time            `json:"UserLastModifiedDate"`
	MFAOptions           []domain.MFAOption   `json:"MFAOptions,omitempty"`
}

func userSummary(user *domain.User) UserSummary {
	return UserSummary{
		Username:             user.Username,
		Attributes:           user.Attributes,
		UserStatus:           user.UserStatus,
		Enabled:              user.Enabled,
		UserCreateDate:       user.UserCreateDate,
		UserLastModifiedDate: user.UserLastModifiedDate,
		MFAOptions:           user.MFAOptions,
	}
}

// GetUserRequest is the GetUser wire request.
type GetUserRequest struct {
	AccessToken string `json:"AccessToken"`
}

// GetUserResponse is the GetUser wire response: attributes under
// "UserAttributes".
type GetUserResponse struct {
	Username       string               `json:"Username"`
	UserAttributes domain.AttributeList `json:"UserAttributes"`
	MFAOptions     []domain.MFAOption   `json:"MFAOptions,omitempty"`
}

// GetUser returns the bearer-token user's profile.
func (t *Targets) GetUser(ctx context.Context, req *GetUserRequest) (*GetUserResponse, error) {
	ctx, span := tracer.Start(ctx, "GetUser")
	defer span.End()

	_, user, err := t.userFromAccessToken(ctx, req.AccessToken)
	if err != nil {
		return nil, err
	}
	return &GetUserResponse{
		Username:       user.Username,
		UserAttributes: user.Attributes,
		MFAOptions:     user.MFAOptions,
	}, nil
}

// AdminGetUserRequest is the AdminGetUser wire request.
type AdminGetUserRequest struct {
	UserPoolID string `json:"UserPoolId"`
	Username   string `json:"Username"`
}

// AdminGetUserResponse is the AdminGetUser wire response.
type AdminGetUserResponse struct {
	Username             string               `json:"Username"`
	UserAttributes       domain.AttributeList `json:"UserAttributes"`
	UserStatus           string               `json:"UserStatus"`
	Enabled              bool                 `json:"Enabled"`
	UserCreateDate       time.Time            `json:"UserCreateDate"`
	UserLastModifiedDate time.Time            `json:"UserLastModifiedDate"`
	MFAOptions           []domain.MFAOption   `json:"MFAOptions,omitempty"`
}

// AdminGetUser returns a user's full record by pool id and username.
func (t *Targets) AdminGetUser(ctx context.Context, req *AdminGetUserRequest) (*AdminGetUserResponse, error) {
	ctx, span := tracer.Start(ctx, "AdminGetUser")
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
	return &AdminGetUserResponse{
		Username:             user.Username,
		UserAttributes:       user.Attributes,
		UserStatus:           user.UserStatus,
		Enabled:              user.Enabled,
		UserCreateDate:       user.UserCreateDate,
		UserLastModifiedDate: user.UserLastModifiedDate,
		MFAOptions:           user.MFAOptions,
	}, nil
}

// ListUsersRequest is the ListUsers wire request.
type ListUsersRequest struct {
	UserPoolID string `json:"UserPoolId"`
}

// ListUsersResponse is the ListUsers wire response.
type ListUsersResponse struct {
	Users []UserSummary `json:"Users"`
}

// ListUsers returns every user in the pool in username order.
func (t *Targets) ListUsers(ctx context.Context, req *ListUsersRequest) (*ListUsersResponse, error) {
	ctx, span := tracer.Start(ctx, "ListUsers")
	defer span.End()

	pool, err := t.cognito.GetUserPool(ctx, req.UserPoolID)
	if err != nil {
		return nil, err
	}
	users, err := pool.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]UserSummary, 0, len(users))
	for i := range users {
		summaries = append(summaries, userSummary(&users[i]))
	}
	return &ListUsersResponse{Users: summaries}, nil
}

// DeleteUserRequest is the DeleteUser wire request.
type DeleteUserRequest struct {
	AccessToken string `json:"AccessToken"`
}

// DeleteUserResponse is the (empty) DeleteUser wire response.
type DeleteUserResponse struct{}

// DeleteUser removes the bearer-token user.
func (t *Targets) DeleteUser(ctx context.Context, req *DeleteUserRequest) (*DeleteUserResponse, error) {
	ctx, span := tracer.Start(ctx, "DeleteUser")
	defer span.End()

	pool, user, err := t.userFromAccessToken(ctx, req.AccessToken)
	if err != nil {
		return nil, err
	}
	if err := pool.DeleteUser(ctx, user); err != nil {
		return nil, err
	}
	return &DeleteUserResponse{}, nil
}

// AdminDeleteUserRequest is the AdminDeleteUser wire request.
type AdminDeleteUserRequest struct {
	UserPoolID string `json:"UserPoolId"`
	Username   string `json:"Username"`
}

// AdminDeleteUserResponse is the (empty) AdminDeleteUser wire response.
type AdminDeleteUserResponse struct{}

// AdminDeleteUser removes a user by pool id and username.
func (t *Targets) AdminDeleteUser(ctx context.Context, req *AdminDeleteUserRequest) (*AdminDeleteUserResponse, error) {
	ctx, span := tracer.Start(ctx, "AdminDeleteUser")
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
	if err := pool.DeleteUser(ctx, user); err != nil {
		return nil, err
	}
	return &AdminDeleteUserResponse{}, nil
}
