// Package messages renders and delivers the one-time code messages sent
// during sign-up, forgot-password, MFA, and attribute verification.
// Rendering consults the CustomMessage trigger when one is configured;
// delivery goes through a pluggable sink so local development can print
// codes instead of sending real messages.
package messages

import (
	"context"
	"strings"

	"github.com/aelexs/cognitolocal/internal/domain"
	"github.com/aelexs/cognitolocal/internal/triggers"
)

// DeliveryDetails is the wire CodeDeliveryDetails shape: which attribute
// the code verifies, over which medium, to which destination.
type DeliveryDetails struct {
	AttributeName  string `json:"AttributeName"`
	DeliveryMedium string `json:"DeliveryMedium"`
	Destination    string `json:"Destination"`
}

// Message is a fully rendered outgoing message. EmailMessage and
// EmailSubject are empty for SMS-only messages.
type Message struct {
	SMSMessage   string
	EmailMessage string
	EmailSubject string
}

// MessageDelivery is the sink that carries a rendered message to its
// destination.
type MessageDelivery interface {
	Deliver(ctx context.Context, user *domain.User, details DeliveryDetails, message *Message) error
}

// customMessager is the narrow, consumer-defined interface for the
// trigger subsystem. *triggers.Triggers satisfies it.
type customMessager interface {
	Enabled(trigger string) bool
	CustomMessage(ctx context.Context, params triggers.CustomMessageParams) (*triggers.CustomMessageResponse, error)
}

// Messages renders code messages and hands them to the delivery sink.
type Messages struct {
	triggers customMessager
	delivery MessageDelivery
}

// New creates a Messages facade. triggers may be nil when no hook
// functions are configured.
func New(triggers customMessager, delivery MessageDelivery) *Messages {
	return &Messages{triggers: triggers, delivery: delivery}
}

// DeliverParams describes one code delivery.
type DeliverParams struct {
	// Source is the CustomMessage trigger source for the flow, e.g.
	// triggers.SourceCustomMessageSignUp.
	Source         string
	ClientID       string
	UserPoolID     string
	User           *domain.User
	Code           string
	ClientMetadata map[string]string
	Details        DeliveryDetails
}

// Deliver renders the message for params and sends it. When the
// CustomMessage trigger is configured its templates replace the
// defaults; placeholder interpolation happens after the trigger runs so
// custom templates can position the code and username freely.
func (m *Messages) Deliver(ctx context.Context, params DeliverParams) error {
	message := &Message{
		SMSMessage: "Your confirmation code is " + triggers.CodeParameter,
	}

	if m.triggers != nil && m.triggers.Enabled(domain.TriggerCustomMessage) {
		custom, err := m.triggers.CustomMessage(ctx, triggers.CustomMessageParams{
			ClientID:       params.ClientID,
			Source:         params.Source,
			Username:       params.User.Username,
			UserPoolID:     params.UserPoolID,
			UserAttributes: params.User.Attributes,
			ClientMetadata: params.ClientMetadata,
			Code:           params.Code,
		})
		if err != nil {
			return err
		}
		if custom != nil {
			if custom.SMSMessage != "" {
				message.SMSMessage = custom.SMSMessage
			}
			if custom.EmailMessage != "" {
				message.EmailMessage = custom.EmailMessage
			}
			if custom.EmailSubject != "" {
				message.EmailSubject = custom.EmailSubject
			}
		}
	}

	message.SMSMessage = interpolate(message.SMSMessage, params.User.Username, params.Code)
	message.EmailMessage = interpolate(message.EmailMessage, params.User.Username, params.Code)
	message.EmailSubject = interpolate(message.EmailSubject, params.User.Username, params.Code)

	return m.delivery.Deliver(ctx, params.User, params.Details, message)
}

func interpolate(template, username, code string) string {
	if template == "" {
		return ""
	}
	out := strings.ReplaceAll(template, triggers.CodeParameter, code)
	return strings.ReplaceAll(out, triggers.UsernameParameter, username)
}
