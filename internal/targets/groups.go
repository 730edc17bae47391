package targets

import (
	"context"

	"github.com/aelexs/cognitolocal/internal/domain"
)

// CreateGroupRequest is the CreateGroup wire request.
type CreateGroupRequest struct {
	UserPoolID  string `json:"UserPoolId"`
	GroupName   string `json:"GroupName"`
	Description string `json:"Description,omitempty"`
	Precedence  *int   `json:"Precedence,omitempty"`
	RoleArn     string `json:"RoleArn,omitempty"`
}

// CreateGroupResponse is the CreateGroup wire response.
type CreateGroupResponse struct {
	Group domain.Group `json:"Group"`
}

// CreateGroup creates or replaces a named group within a pool.
func (t *Targets) CreateGroup(ctx context.Context, req *CreateGroupRequest) (*CreateGroupResponse, error) {
	ctx, span := tracer.Start(ctx, "CreateGroup")
	defer span.End()

	pool, err := t.cognito.GetUserPool(ctx, req.UserPoolID)
	if err != nil {
		return nil, err
	}

	now := t.clock.Now()
	group := &domain.Group{
		GroupName:        req.GroupName,
		UserPoolID:       req.UserPoolID,
		Description:      req.Description,
		Precedence:       req.Precedence,
		RoleArn:          req.RoleArn,
		CreationDate:     now,
		LastModifiedDate: now,
	}
	if err := pool.SaveGroup(ctx, group); err != nil {
		return nil, err
	}
	return &CreateGroupResponse{Group: *group}, nil
}

// ListGroupsRequest is the ListGroups wire request.
type ListGroupsRequest struct {
	UserPoolID string `json:"UserPoolId"`
}

// ListGroupsResponse is the ListGroups wire response.
type ListGroupsResponse struct {
	Groups []domain.Group `json:"Groups"`
}

// ListGroups returns every group in the pool in name order.
func (t *Targets) ListGroups(ctx context.Context, req *ListGroupsRequest) (*ListGroupsResponse, error) {
	ctx, span := tracer.Start(ctx, "ListGroups")
	defer span.End()

	pool, err := t.cognito.GetUserPool(ctx, req.UserPoolID)
	if err != nil {
		return nil, err
	}
	groups, err := pool.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []domain.Group{}
	}
	return &ListGroupsResponse{Groups: groups}, nil
}
