// Package targets implements one handler per wire operation. Each
// handler is a method on Targets following the same pattern: resolve the
// pool, resolve or mutate the user or group, persist, fire triggers.
package targets

import (
	"context"
	"encoding/json"
	"path"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/aelexs/cognitolocal/internal/cognito"
	"github.com/aelexs/cognitolocal/internal/domain"
	"github.com/aelexs/cognitolocal/internal/messages"
	"github.com/aelexs/cognitolocal/internal/otp"
	"github.com/aelexs/cognitolocal/internal/token"
	"github.com/aelexs/cognitolocal/internal/triggers"
)

var tracer = otel.Tracer("cognitolocal/targets")

var (
	signUpsTotal         metric.Int64Counter
	authAttemptsTotal    metric.Int64Counter
	authFailuresTotal    metric.Int64Counter
	tokensIssuedTotal    metric.Int64Counter
	codesDeliveredTotal  metric.Int64Counter
	triggerFailuresTotal metric.Int64Counter
)

func init() {
	m := otel.Meter("cognitolocal/targets")

	signUpsTotal, _ = m.Int64Counter("idp_sign_ups_total",
		metric.WithDescription("Total sign-up requests accepted"))
	authAttemptsTotal, _ = m.Int64Counter("idp_auth_attempts_total",
		metric.WithDescription("Total authentication attempts"))
	authFailuresTotal, _ = m.Int64Counter("idp_auth_failures_total",
		metric.WithDescription("Total authentication failures"))
	tokensIssuedTotal, _ = m.Int64Counter("idp_tokens_issued_total",
		metric.WithDescription("Total token triples issued"))
	codesDeliveredTotal, _ = m.Int64Counter("idp_codes_delivered_total",
		metric.WithDescription("Total one-time codes dispatched"))
	triggerFailuresTotal, _ = m.Int64Counter("idp_trigger_failures_total",
		metric.WithDescription("Total trigger invocation failures"))
}

// triggerInvoker is the narrow, consumer-defined interface over the
// trigger subsystem. *triggers.Triggers satisfies it. A nil invoker
// means no hook functions are configured.
type triggerInvoker interface {
	Enabled(trigger string) bool
	PreSignUp(ctx context.Context, params triggers.PreSignUpParams) (*triggers.PreSignUpResponse, error)
	PostConfirmation(ctx context.Context, params triggers.ConfirmationParams) error
	PostAuthentication(ctx context.Context, params triggers.PostAuthenticationParams) error
	UserMigration(ctx context.Context, params triggers.UserMigrationParams) (*domain.User, error)
}

// messageDeliverer is the narrow interface over message delivery.
// *messages.Messages satisfies it.
type messageDeliverer interface {
	Deliver(ctx context.Context, params messages.DeliverParams) error
}

// Config holds the collaborator graph for Targets.
type Config struct {
	Cognito  cognito.Service
	Messages messageDeliverer
	Triggers triggerInvoker
	Tokens   token.Generator
	Keys     token.KeyStore
	Clock    domain.Clock
	OTP      otp.Generator
}

// Targets holds the handlers for every wire operation.
type Targets struct {
	cognito  cognito.Service
	messages messageDeliverer
	triggers triggerInvoker
	tokens   token.Generator
	keys     token.KeyStore
	clock    domain.Clock
	otp      otp.Generator
}

// New creates Targets from cfg.
func New(cfg Config) *Targets {
	return &Targets{
		cognito:  cfg.Cognito,
		messages: cfg.Messages,
		triggers: cfg.Triggers,
		tokens:   cfg.Tokens,
		keys:     cfg.Keys,
		clock:    cfg.Clock,
		otp:      cfg.OTP,
	}
}

func (t *Targets) triggerEnabled(name string) bool {
	return t.triggers != nil && t.triggers.Enabled(name)
}

// codeDeliveryDetails picks the delivery channel for user among channels,
// preferring phone_number over email. The second return is false when the
// user carries none of the channels.
func codeDeliveryDetails(user *domain.User, channels []string) (messages.DeliveryDetails, bool) {
	has := func(channel string) bool {
		for _, c := range channels {
			if c == channel {
				return true
			}
		}
		return false
	}

	if has(domain.AttrPhoneNumber) {
		if phone, ok := user.Attributes.Get(domain.AttrPhoneNumber); ok {
			return messages.DeliveryDetails{
				AttributeName:  domain.AttrPhoneNumber,
				DeliveryMedium: domain.DeliverySMS,
				Destination:    phone,
			}, true
		}
	}
	if has(domain.AttrEmail) {
		if email, ok := user.Attributes.Get(domain.AttrEmail); ok {
			return messages.DeliveryDetails{
				AttributeName:  domain.AttrEmail,
				DeliveryMedium: domain.DeliveryEmail,
				Destination:    email,
			}, true
		}
	}
	return messages.DeliveryDetails{}, false
}

// userFromAccessToken authenticates a bearer-token operation: it
// validates the access token, resolves the issuing pool from the iss
// claim, and loads the user named by the username claim.
func (t *Targets) userFromAccessToken(ctx context.Context, accessToken string) (cognito.UserPoolService, *domain.User, error) {
	claims, err := token.ParseAccessToken(t.keys, t.clock, accessToken)
	if err != nil {
		return nil, nil, domain.NotAuthorized("Invalid Access Token")
	}
	issuer, _ := claims["iss"].(string)
	username, _ := claims["username"].(string)
	if issuer == "" || username == "" {
		return nil, nil, domain.NotAuthorized("Invalid Access Token")
	}

	pool, err := t.cognito.GetUserPool(ctx, path.Base(issuer))
	if err != nil {
		return nil, nil, err
	}
	user, err := pool.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, domain.NotAuthorized("Invalid Access Token")
	}
	return pool, user, nil
}

// attributesJSON renders attributes as the JSON object string used in
// challenge parameters.
func attributesJSON(attrs domain.AttributeList) string {
	raw, err := json.Marshal(attrs.ToMap())
	if err != nil {
		return "{}"
	}
	return string(raw)
}
