package messages

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/aelexs/cognitolocal/internal/domain"
)

// snsPublisher is a narrow, consumer-defined interface for the subset of
// SNS operations required by the SNS sink. The real *sns.Client
// satisfies it.
type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

var _ MessageDelivery = (*ConsoleDelivery)(nil)
var _ MessageDelivery = (*SNSDelivery)(nil)

// ConsoleDelivery logs messages instead of sending them. The code stays
// visible in the log so developers can complete confirmation flows; the
// destination is masked.
type ConsoleDelivery struct {
	logger *slog.Logger
}

// NewConsoleDelivery creates a ConsoleDelivery that writes to logger.
func NewConsoleDelivery(logger *slog.Logger) *ConsoleDelivery {
	return &ConsoleDelivery{logger: logger}
}

// Deliver logs the rendered message.
func (d *ConsoleDelivery) Deliver(ctx context.Context, user *domain.User, details DeliveryDetails, message *Message) error {
	attrs := []any{
		slog.String("username", user.Username),
		slog.String("medium", details.DeliveryMedium),
		slog.String("destination", maskDestination(details.Destination)),
		slog.String("message", message.SMSMessage),
	}
	if message.EmailMessage != "" {
		attrs = append(attrs,
			slog.String("emailSubject", message.EmailSubject),
			slog.String("emailMessage", message.EmailMessage),
		)
	}
	d.logger.InfoContext(ctx, "message delivery (log-only)", attrs...)
	return nil
}

// SNSDelivery sends SMS messages through Amazon SNS. Email delivery is
// out of SNS's reach, so EMAIL-medium messages fall back to log-only
// delivery.
type SNSDelivery struct {
	client   snsPublisher
	fallback *ConsoleDelivery
}

// NewSNSDelivery creates an SNSDelivery backed by the given SNS client.
func NewSNSDelivery(client snsPublisher, logger *slog.Logger) *SNSDelivery {
	return &SNSDelivery{client: client, fallback: NewConsoleDelivery(logger)}
}

// Deliver publishes SMS messages to the destination phone number and
// logs everything else.
func (d *SNSDelivery) Deliver(ctx context.Context, user *domain.User, details DeliveryDetails, message *Message) error {
	if details.DeliveryMedium != domain.DeliverySMS {
		return d.fallback.Deliver(ctx, user, details, message)
	}

	_, err := d.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &details.Destination,
		Message:     &message.SMSMessage,
	})
	if err != nil {
		return fmt.Errorf("sns: deliver code to %s: %w", maskDestination(details.Destination), err)
	}
	return nil
}

// NewSNSClient creates an SNS SDK client. When endpoint is non-empty,
// BaseEndpoint is set on the service client and static test credentials
// are used.
func NewSNSClient(ctx context.Context, endpoint, region string) (*sns.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if endpoint != "" {
		opts = append(opts,
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider("local", "local", ""),
			),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var fnOpts []func(*sns.Options)
	if endpoint != "" {
		fnOpts = append(fnOpts, func(o *sns.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	return sns.NewFromConfig(awsCfg, fnOpts...), nil
}

// maskDestination returns a masked destination showing only the last 4
// characters. Destinations of 4 characters or fewer are fully masked.
func maskDestination(destination string) string {
	if len(destination) <= 4 {
		return "****"
	}
	return "***" + destination[len(destination)-4:]
}
