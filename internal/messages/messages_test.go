package messages_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/cognitolocal/internal/domain"
	"github.com/aelexs/cognitolocal/internal/messages"
	"github.com/aelexs/cognitolocal/internal/triggers"
)

type fakeDelivery struct {
	err error

	gotUser    *domain.User
	gotDetails messages.DeliveryDetails
	gotMessage *messages.Message
}

func (f *fakeDelivery) Deliver(_ context.Context, user *domain.User, details messages.DeliveryDetails, message *messages.Message) error {
	f.gotUser = user
	f.gotDetails = details
	f.gotMessage = message
	return f.err
}

type fakeCustomMessager struct {
	enabled  bool
	response *triggers.CustomMessageResponse
	err      error

	gotParams *triggers.CustomMessageParams
}

func (f *fakeCustomMessager) Enabled(string) bool { return f.enabled }

func (f *fakeCustomMessager) CustomMessage(_ context.Context, params triggers.CustomMessageParams) (*triggers.CustomMessageResponse, error) {
	f.gotParams = &params
	return f.response, f.err
}

func smsUser() *domain.User {
	return &domain.User{
		Username: "alice",
		Attributes: domain.AttributeList{
			{Name: domain.AttrSub, Value: "11111111-2222-3333-4444-555555555555"},
			{Name: domain.AttrPhoneNumber, Value: "+15551230001"},
		},
	}
}

func smsDetails() messages.DeliveryDetails {
	return messages.DeliveryDetails{
		AttributeName:  domain.AttrPhoneNumber,
		DeliveryMedium: domain.DeliverySMS,
		Destination:    "+15551230001",
	}
}

func TestDeliver(t *testing.T) {
	ctx := context.Background()

	t.Run("default template carries the code", func(t *testing.T) {
		sink := &fakeDelivery{}
		m := messages.New(nil, sink)

		err := m.Deliver(ctx, messages.DeliverParams{
			Source:  triggers.SourceCustomMessageSignUp,
			User:    smsUser(),
			Code:    "1234",
			Details: smsDetails(),
		})
		require.NoError(t, err)
		require.NotNil(t, sink.gotMessage)
		assert.Equal(t, "Your confirmation code is 1234", sink.gotMessage.SMSMessage)
		assert.Equal(t, smsDetails(), sink.gotDetails)
	})

	t.Run("custom template interpolated after trigger", func(t *testing.T) {
		hook := &fakeCustomMessager{
			enabled: true,
			response: &triggers.CustomMessageResponse{
				SMSMessage:   "Hi {username}, use {####}",
				EmailMessage: "Dear {username}, your code is {####}",
				EmailSubject: "Code for {username}",
			},
		}
		sink := &fakeDelivery{}
		m := messages.New(hook, sink)

		err := m.Deliver(ctx, messages.DeliverParams{
			Source:     triggers.SourceCustomMessageForgotPassword,
			ClientID:   "client1",
			UserPoolID: "local_pool",
			User:       smsUser(),
			Code:       "9876",
			Details:    smsDetails(),
		})
		require.NoError(t, err)
		assert.Equal(t, "Hi alice, use 9876", sink.gotMessage.SMSMessage)
		assert.Equal(t, "Dear alice, your code is 9876", sink.gotMessage.EmailMessage)
		assert.Equal(t, "Code for alice", sink.gotMessage.EmailSubject)

		require.NotNil(t, hook.gotParams)
		assert.Equal(t, triggers.SourceCustomMessageForgotPassword, hook.gotParams.Source)
		assert.Equal(t, "9876", hook.gotParams.Code)
	})

	t.Run("disabled trigger keeps default template", func(t *testing.T) {
		hook := &fakeCustomMessager{enabled: false}
		sink := &fakeDelivery{}
		m := messages.New(hook, sink)

		err := m.Deliver(ctx, messages.DeliverParams{
			Source:  triggers.SourceCustomMessageResendCode,
			User:    smsUser(),
			Code:    "4321",
			Details: smsDetails(),
		})
		require.NoError(t, err)
		assert.Nil(t, hook.gotParams)
		assert.Equal(t, "Your confirmation code is 4321", sink.gotMessage.SMSMessage)
	})

	t.Run("trigger failure aborts delivery", func(t *testing.T) {
		hook := &fakeCustomMessager{enabled: true, err: domain.ErrUserLambdaValidation}
		sink := &fakeDelivery{}
		m := messages.New(hook, sink)

		err := m.Deliver(ctx, messages.DeliverParams{
			Source:  triggers.SourceCustomMessageSignUp,
			User:    smsUser(),
			Code:    "1234",
			Details: smsDetails(),
		})
		assert.ErrorIs(t, err, domain.ErrUserLambdaValidation)
		assert.Nil(t, sink.gotMessage)
	})
}

type fakeSNSPublisher struct {
	err error

	gotInput *sns.PublishInput
}

func (f *fakeSNSPublisher) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.gotInput = params
	return &sns.PublishOutput{}, f.err
}

func TestSNSDelivery(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	t.Run("publishes SMS to destination", func(t *testing.T) {
		client := &fakeSNSPublisher{}
		d := messages.NewSNSDelivery(client, logger)

		err := d.Deliver(ctx, smsUser(), smsDetails(), &messages.Message{SMSMessage: "code 1234"})
		require.NoError(t, err)
		require.NotNil(t, client.gotInput)
		assert.Equal(t, "+15551230001", *client.gotInput.PhoneNumber)
		assert.Equal(t, "code 1234", *client.gotInput.Message)
	})

	t.Run("email medium falls back to log-only", func(t *testing.T) {
		client := &fakeSNSPublisher{}
		d := messages.NewSNSDelivery(client, logger)

		err := d.Deliver(ctx, smsUser(), messages.DeliveryDetails{
			AttributeName:  domain.AttrEmail,
			DeliveryMedium: domain.DeliveryEmail,
			Destination:    "alice@example.com",
		}, &messages.Message{EmailMessage: "code 1234", EmailSubject: "code"})
		require.NoError(t, err)
		assert.Nil(t, client.gotInput)
	})

	t.Run("publish failure is masked in the error", func(t *testing.T) {
		client := &fakeSNSPublisher{err: assert.AnError}
		d := messages.NewSNSDelivery(client, logger)

		err := d.Deliver(ctx, smsUser(), smsDetails(), &messages.Message{SMSMessage: "code"})
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "+15551230001")
		assert.Contains(t, err.Error(), "0001")
	})
}

func TestConsoleDelivery(t *testing.T) {
	d := messages.NewConsoleDelivery(slog.New(slog.DiscardHandler))
	err := d.Deliver(context.Background(), smsUser(), smsDetails(), &messages.Message{SMSMessage: "code 1234"})
	assert.NoError(t, err)
}
