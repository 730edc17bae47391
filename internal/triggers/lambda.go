// Package triggers invokes user-supplied hook functions at well-defined
// points of the auth flows and threads their responses back into the
// flow. Hooks run synchronously; the event envelope reproduces the wire
// shape user code written against the hosted service expects.
package triggers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/aelexs/cognitolocal/internal/domain"
)

// CallerContext is the synthetic caller context embedded in every event.
type CallerContext struct {
	AwsSdkVersion string `json:"awsSdkVersion"`
	ClientID      string `json:"clientId"`
}

// Event is the envelope delivered to hook functions. Version is
// hard-coded "0" and Region "local", matching the emulated wire shape;
// whether downstream user code depends on either is a known fidelity
// risk.
type Event struct {
	Version       string         `json:"version"`
	TriggerSource string         `json:"triggerSource"`
	Region        string         `json:"region"`
	UserPoolID    string         `json:"userPoolId"`
	UserName      string         `json:"userName"`
	CallerContext CallerContext  `json:"callerContext"`
	Request       map[string]any `json:"request"`
	Response      map[string]any `json:"response"`
}

// Lambda invokes the external function configured for a trigger.
type Lambda interface {
	// Enabled reports whether a function is configured for trigger.
	Enabled(trigger string) bool

	// Invoke calls the trigger's function synchronously with event and
	// returns the decoded "response" field of the returned envelope.
	Invoke(ctx context.Context, trigger string, event *Event) (map[string]any, error)
}

// lambdaClient is the narrow, consumer-defined interface for the subset
// of Lambda operations required by the invoker. The real *lambda.Client
// satisfies it.
type lambdaClient interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// ClientConfig holds Lambda connection parameters.
type ClientConfig struct {
	// Endpoint overrides the default AWS endpoint; point it at the local
	// runtime hosting the hook functions (e.g. LocalStack or SAM).
	Endpoint string

	// Region for the client. Hooks run locally, so this is cosmetic.
	Region string

	// Timeout is the HTTP client timeout for invocations.
	Timeout time.Duration
}

// NewClient creates a Lambda SDK client configured from cfg. When
// cfg.Endpoint is non-empty, BaseEndpoint is set on the service client
// and static test credentials are used.
func NewClient(ctx context.Context, cfg ClientConfig) (*lambda.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
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
	if cfg.Timeout > 0 {
		awsCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	var fnOpts []func(*lambda.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		fnOpts = append(fnOpts, func(o *lambda.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	return lambda.NewFromConfig(awsCfg, fnOpts...), nil
}

// AWSLambda is the concrete Lambda backed by the AWS SDK client and a
// trigger-name -> function-name map.
type AWSLambda struct {
	client    lambdaClient
	functions map[string]string
	logger    *slog.Logger
}

var _ Lambda = (*AWSLambda)(nil)

// NewAWSLambda creates an AWSLambda. functions maps trigger names
// (domain.TriggerPreSignUp, ...) to function names.
func NewAWSLambda(client lambdaClient, functions map[string]string, logger *slog.Logger) *AWSLambda {
	return &AWSLambda{client: client, functions: functions, logger: logger}
}

// Enabled reports whether a function is configured for trigger.
func (l *AWSLambda) Enabled(trigger string) bool {
	return l.functions[trigger] != ""
}

// Invoke calls the configured function with the JSON-encoded event using
// RequestResponse invocation, bounded by the lambda timeout.
func (l *AWSLambda) Invoke(ctx context.Context, trigger string, event *Event) (map[string]any, error) {
	functionName, ok := l.functions[trigger]
	if !ok || functionName == "" {
		return nil, domain.Unsupported("%s trigger is not configured", trigger)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", trigger, err)
	}

	ctx, cancel := context.WithTimeout(ctx, domain.LambdaTimeout)
	defer cancel()

	l.logger.DebugContext(ctx, "invoking trigger",
		slog.String("trigger", trigger),
		slog.String("function", functionName),
		slog.String("source", event.TriggerSource),
	)

	out, err := l.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		l.logger.ErrorContext(ctx, "trigger invocation failed",
			slog.String("trigger", trigger),
			slog.String("function", functionName),
			slog.Any("error", err),
		)
		return nil, &domain.APIError{
			Name:    domain.NameUnexpectedLambdaException,
			Message: fmt.Sprintf("Unexpected error when invoking %s: %v", functionName, err),
		}
	}

	if out.StatusCode != http.StatusOK {
		functionError := ""
		if out.FunctionError != nil {
			functionError = *out.FunctionError
		}
		return nil, domain.UserLambdaValidation("%s failed with error %s.", functionName, functionError)
	}

	var returned Event
	if err := json.Unmarshal(out.Payload, &returned); err != nil {
		return nil, &domain.APIError{
			Name:    domain.NameInvalidLambdaResponse,
			Message: fmt.Sprintf("Invalid lambda response from %s", functionName),
		}
	}
	return returned.Response, nil
}
