package domain

import "time"

// AttributeType is a single name/value user attribute as it appears on the
// wire and in the persisted pool document.
type AttributeType struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// AttributeList is an ordered list of attributes. Order is preserved from
// the caller except that "sub" is always first (assigned at creation).
type AttributeList []AttributeType

// Get returns the value for name and whether it is present.
func (l AttributeList) Get(name string) (string, bool) {
	for _, a := range l {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Has reports whether name is present.
func (l AttributeList) Has(name string) bool {
	_, ok := l.Get(name)
	return ok
}

// Set replaces the value for name in place, or appends when absent.
func (l AttributeList) Set(name, value string) AttributeList {
	for i, a := range l {
		if a.Name == name {
			l[i].Value = value
			return l
		}
	}
	return append(l, AttributeType{Name: name, Value: value})
}

// Delete removes name, preserving the order of the remaining entries.
func (l AttributeList) Delete(name string) AttributeList {
	out := l[:0]
	for _, a := range l {
		if a.Name != name {
			out = append(out, a)
		}
	}
	return out
}

// ToMap flattens the list to a name -> value map. On duplicate names the
// first entry wins, matching lookup order.
func (l AttributeList) ToMap() map[string]string {
	m := make(map[string]string, len(l))
	for _, a := range l {
		if _, seen := m[a.Name]; !seen {
			m[a.Name] = a.Value
		}
	}
	return m
}

// MFAOption binds a delivery medium to the attribute holding the
// destination. Only SMS via phone_number is supported.
type MFAOption struct {
	DeliveryMedium string `json:"DeliveryMedium"`
	AttributeName  string `json:"AttributeName"`
}

// User is a member of a single user pool, keyed by Username.
// Password is stored in plaintext: this is a local development emulator
// and hashing is an explicit non-goal.
type User struct {
	Username             string        `json:"Username"`
	Password             string        `json:"Password"`
	UserStatus           string        `json:"UserStatus"`
	Enabled              bool          `json:"Enabled"`
	Attributes           AttributeList `json:"Attributes"`
	MFAOptions           []MFAOption   `json:"MFAOptions,omitempty"`
	UserCreateDate       time.Time     `json:"UserCreateDate"`
	UserLastModifiedDate time.Time     `json:"UserLastModifiedDate"`

	// Transient challenge secrets, cleared on successful use.
	ConfirmationCode          string `json:"ConfirmationCode,omitempty"`
	MFACode                   string `json:"MFACode,omitempty"`
	AttributeVerificationCode string `json:"AttributeVerificationCode,omitempty"`

	// RefreshTokens holds every refresh token issued to this user. Tokens
	// are retained until explicitly revoked.
	RefreshTokens []string `json:"RefreshTokens"`
}

// Sub returns the user's immutable sub attribute.
func (u *User) Sub() string {
	sub, _ := u.Attributes.Get(AttrSub)
	return sub
}

// HasRefreshToken reports whether token was issued to this user.
func (u *User) HasRefreshToken(token string) bool {
	for _, t := range u.RefreshTokens {
		if t == token {
			return true
		}
	}
	return false
}

// RemoveRefreshToken deletes token from the user's issued set and reports
// whether it was present.
func (u *User) RemoveRefreshToken(token string) bool {
	for i, t := range u.RefreshTokens {
		if t == token {
			u.RefreshTokens = append(u.RefreshTokens[:i], u.RefreshTokens[i+1:]...)
			return true
		}
	}
	return false
}

// SmsMFAOption returns the user's SMS MFA option bound to phone_number,
// or nil when the user has none.
func (u *User) SmsMFAOption() *MFAOption {
	for i, o := range u.MFAOptions {
		if o.DeliveryMedium == DeliverySMS && o.AttributeName == AttrPhoneNumber {
			return &u.MFAOptions[i]
		}
	}
	return nil
}
