package domain

import "time"

// SchemaAttribute describes one attribute permitted on users of a pool.
type SchemaAttribute struct {
	Name              string `json:"Name"`
	AttributeDataType string `json:"AttributeDataType,omitempty"`
	Mutable           bool   `json:"Mutable"`
	Required          bool   `json:"Required,omitempty"`
}

// UserPool is the top-level tenant: configuration plus the users, groups
// and app clients scoped to it.
type UserPool struct {
	ID                     string            `json:"Id"`
	Name                   string            `json:"Name,omitempty"`
	UsernameAttributes     []string          `json:"UsernameAttributes,omitempty"`
	AutoVerifiedAttributes []string          `json:"AutoVerifiedAttributes,omitempty"`
	MfaConfiguration       string            `json:"MfaConfiguration,omitempty"`
	SchemaAttributes       []SchemaAttribute `json:"SchemaAttributes,omitempty"`
	SmsVerificationMessage string            `json:"SmsVerificationMessage,omitempty"`
	SmsConfiguration       map[string]string `json:"SmsConfiguration,omitempty"`
	CreationDate           time.Time         `json:"CreationDate"`
	LastModifiedDate       time.Time         `json:"LastModifiedDate"`
}

// UsernameAttributeEnabled reports whether attr may alias the login name.
func (p *UserPool) UsernameAttributeEnabled(attr string) bool {
	for _, a := range p.UsernameAttributes {
		if a == attr {
			return true
		}
	}
	return false
}

// AutoVerifiedAttributeEnabled reports whether attr auto-receives a
// confirmation code on sign-up.
func (p *UserPool) AutoVerifiedAttributeEnabled(attr string) bool {
	for _, a := range p.AutoVerifiedAttributes {
		if a == attr {
			return true
		}
	}
	return false
}

// SchemaAttribute returns the schema entry for name, or nil when the pool
// does not permit the attribute.
func (p *UserPool) SchemaAttribute(name string) *SchemaAttribute {
	for i := range p.SchemaAttributes {
		if p.SchemaAttributes[i].Name == name {
			return &p.SchemaAttributes[i]
		}
	}
	return nil
}

// DefaultSchema returns the standard attribute schema applied when
// CreateUserPool does not supply one. Only sub is immutable.
func DefaultSchema() []SchemaAttribute {
	names := []string{
		"address", "birthdate", "email", "family_name", "gender",
		"given_name", "locale", "middle_name", "name", "nickname",
		"phone_number", "picture", "preferred_username", "profile",
		"updated_at", "website", "zoneinfo",
	}
	schema := make([]SchemaAttribute, 0, len(names)+3)
	schema = append(schema, SchemaAttribute{Name: AttrSub, AttributeDataType: "String", Mutable: false, Required: true})
	for _, n := range names {
		schema = append(schema, SchemaAttribute{Name: n, AttributeDataType: "String", Mutable: true})
	}
	schema = append(schema,
		SchemaAttribute{Name: AttrEmailVerified, AttributeDataType: "Boolean", Mutable: true},
		SchemaAttribute{Name: AttrPhoneNumberVerified, AttributeDataType: "Boolean", Mutable: true},
	)
	return schema
}

// AppClient is a credential holder scoped to exactly one user pool.
// Clients live in a shared store keyed by ClientId.
type AppClient struct {
	ClientID             string    `json:"ClientId"`
	ClientName           string    `json:"ClientName"`
	UserPoolID           string    `json:"UserPoolId"`
	RefreshTokenValidity int       `json:"RefreshTokenValidity"` // days
	CreationDate         time.Time `json:"CreationDate"`
	LastModifiedDate     time.Time `json:"LastModifiedDate"`
}

// Group is a named collection of users within one pool.
type Group struct {
	GroupName        string    `json:"GroupName"`
	UserPoolID       string    `json:"UserPoolId"`
	Description      string    `json:"Description,omitempty"`
	Precedence       *int      `json:"Precedence,omitempty"`
	RoleArn          string    `json:"RoleArn,omitempty"`
	CreationDate     time.Time `json:"CreationDate"`
	LastModifiedDate time.Time `json:"LastModifiedDate"`
}
