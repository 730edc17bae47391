package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/cognitolocal/internal/domain"
)

func TestAttributeList(t *testing.T) {
	t.Run("Get and Has", func(t *testing.T) {
		attrs := domain.AttributeList{
			{Name: "sub", Value: "abc"},
			{Name: "email", Value: "a@example.com"},
		}
		v, ok := attrs.Get("email")
		require.True(t, ok)
		assert.Equal(t, "a@example.com", v)
		assert.False(t, attrs.Has("phone_number"))
	})

	t.Run("Set replaces in place, preserving order", func(t *testing.T) {
		attrs := domain.AttributeList{
			{Name: "sub", Value: "abc"},
			{Name: "email", Value: "old@example.com"},
		}
		attrs = attrs.Set("email", "new@example.com")
		require.Len(t, attrs, 2)
		assert.Equal(t, "email", attrs[1].Name)
		assert.Equal(t, "new@example.com", attrs[1].Value)
	})

	t.Run("Set appends when absent", func(t *testing.T) {
		attrs := domain.AttributeList{{Name: "sub", Value: "abc"}}
		attrs = attrs.Set("email_verified", "true")
		require.Len(t, attrs, 2)
		assert.Equal(t, domain.AttributeType{Name: "email_verified", Value: "true"}, attrs[1])
	})

	t.Run("Delete keeps remaining order", func(t *testing.T) {
		attrs := domain.AttributeList{
			{Name: "sub", Value: "abc"},
			{Name: "email", Value: "a@example.com"},
			{Name: "name", Value: "Alice"},
		}
		attrs = attrs.Delete("email")
		require.Len(t, attrs, 2)
		assert.Equal(t, "sub", attrs[0].Name)
		assert.Equal(t, "name", attrs[1].Name)
	})

	t.Run("ToMap first entry wins on duplicates", func(t *testing.T) {
		attrs := domain.AttributeList{
			{Name: "email", Value: "first@example.com"},
			{Name: "email", Value: "second@example.com"},
		}
		assert.Equal(t, "first@example.com", attrs.ToMap()["email"])
	})
}

func TestUserRefreshTokens(t *testing.T) {
	u := &domain.User{RefreshTokens: []string{"t1", "t2", "t3"}}

	assert.True(t, u.HasRefreshToken("t2"))
	assert.False(t, u.HasRefreshToken("t9"))

	require.True(t, u.RemoveRefreshToken("t2"))
	assert.Equal(t, []string{"t1", "t3"}, u.RefreshTokens)
	assert.False(t, u.RemoveRefreshToken("t2"))
}

func TestUserSmsMFAOption(t *testing.T) {
	t.Run("finds SMS option bound to phone_number", func(t *testing.T) {
		u := &domain.User{MFAOptions: []domain.MFAOption{
			{DeliveryMedium: domain.DeliverySMS, AttributeName: domain.AttrPhoneNumber},
		}}
		require.NotNil(t, u.SmsMFAOption())
	})

	t.Run("nil when no SMS option", func(t *testing.T) {
		u := &domain.User{MFAOptions: []domain.MFAOption{
			{DeliveryMedium: domain.DeliveryEmail, AttributeName: domain.AttrEmail},
		}}
		assert.Nil(t, u.SmsMFAOption())
	})
}

func TestUserPoolHelpers(t *testing.T) {
	pool := &domain.UserPool{
		ID:                     "local_pool1",
		UsernameAttributes:     []string{domain.AttrEmail},
		AutoVerifiedAttributes: []string{domain.AttrPhoneNumber},
		SchemaAttributes:       domain.DefaultSchema(),
	}

	assert.True(t, pool.UsernameAttributeEnabled(domain.AttrEmail))
	assert.False(t, pool.UsernameAttributeEnabled(domain.AttrPhoneNumber))
	assert.True(t, pool.AutoVerifiedAttributeEnabled(domain.AttrPhoneNumber))

	sub := pool.SchemaAttribute(domain.AttrSub)
	require.NotNil(t, sub)
	assert.False(t, sub.Mutable)

	email := pool.SchemaAttribute(domain.AttrEmail)
	require.NotNil(t, email)
	assert.True(t, email.Mutable)

	assert.Nil(t, pool.SchemaAttribute("custom:tier"))
}
