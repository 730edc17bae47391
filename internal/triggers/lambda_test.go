package triggers_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/cognitolocal/internal/domain"
	"github.com/aelexs/cognitolocal/internal/triggers"
)

type fakeLambdaClient struct {
	invoke func(ctx context.Context, params *lambda.InvokeInput) (*lambda.InvokeOutput, error)

	gotInput *lambda.InvokeInput
}

func (f *fakeLambdaClient) Invoke(ctx context.Context, params *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.gotInput = params
	return f.invoke(ctx, params)
}

func okOutput(t *testing.T, event *triggers.Event) *lambda.InvokeOutput {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return &lambda.InvokeOutput{StatusCode: 200, Payload: payload}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestAWSLambdaEnabled(t *testing.T) {
	l := triggers.NewAWSLambda(&fakeLambdaClient{}, map[string]string{
		domain.TriggerPreSignUp: "pre-sign-up-fn",
	}, discardLogger())

	assert.True(t, l.Enabled(domain.TriggerPreSignUp))
	assert.False(t, l.Enabled(domain.TriggerPostConfirmation))
}

func TestAWSLambdaInvoke(t *testing.T) {
	ctx := context.Background()
	event := &triggers.Event{
		Version:       "0",
		TriggerSource: triggers.SourcePreSignUpSignUp,
		Region:        "local",
		UserPoolID:    "local_pool",
		UserName:      "alice",
		Request:       map[string]any{},
		Response:      map[string]any{},
	}

	t.Run("returns decoded response field", func(t *testing.T) {
		client := &fakeLambdaClient{
			invoke: func(_ context.Context, _ *lambda.InvokeInput) (*lambda.InvokeOutput, error) {
				returned := *event
				returned.Response = map[string]any{"autoConfirmUser": true}
				return okOutput(t, &returned), nil
			},
		}
		l := triggers.NewAWSLambda(client, map[string]string{
			domain.TriggerPreSignUp: "pre-sign-up-fn",
		}, discardLogger())

		response, err := l.Invoke(ctx, domain.TriggerPreSignUp, event)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"autoConfirmUser": true}, response)

		require.NotNil(t, client.gotInput)
		assert.Equal(t, "pre-sign-up-fn", *client.gotInput.FunctionName)
		assert.Equal(t, types.InvocationTypeRequestResponse, client.gotInput.InvocationType)

		var sent triggers.Event
		require.NoError(t, json.Unmarshal(client.gotInput.Payload, &sent))
		assert.Equal(t, "0", sent.Version)
		assert.Equal(t, "local", sent.Region)
		assert.Equal(t, triggers.SourcePreSignUpSignUp, sent.TriggerSource)
	})

	t.Run("unconfigured trigger is unsupported", func(t *testing.T) {
		l := triggers.NewAWSLambda(&fakeLambdaClient{}, nil, discardLogger())

		_, err := l.Invoke(ctx, domain.TriggerPreSignUp, event)
		assert.ErrorIs(t, err, domain.ErrUnsupported)
	})

	t.Run("transport failure maps to unexpected lambda error", func(t *testing.T) {
		client := &fakeLambdaClient{
			invoke: func(_ context.Context, _ *lambda.InvokeInput) (*lambda.InvokeOutput, error) {
				return nil, assert.AnError
			},
		}
		l := triggers.NewAWSLambda(client, map[string]string{
			domain.TriggerPreSignUp: "pre-sign-up-fn",
		}, discardLogger())

		_, err := l.Invoke(ctx, domain.TriggerPreSignUp, event)
		assert.ErrorIs(t, err, domain.ErrUnexpectedLambdaException)
	})

	t.Run("non-200 status maps to user lambda validation", func(t *testing.T) {
		client := &fakeLambdaClient{
			invoke: func(_ context.Context, _ *lambda.InvokeInput) (*lambda.InvokeOutput, error) {
				return &lambda.InvokeOutput{
					StatusCode:    500,
					FunctionError: aws.String("Unhandled"),
				}, nil
			},
		}
		l := triggers.NewAWSLambda(client, map[string]string{
			domain.TriggerPreSignUp: "pre-sign-up-fn",
		}, discardLogger())

		_, err := l.Invoke(ctx, domain.TriggerPreSignUp, event)
		assert.ErrorIs(t, err, domain.ErrUserLambdaValidation)
		assert.Contains(t, err.Error(), "Unhandled")
	})

	t.Run("unparseable payload maps to invalid response", func(t *testing.T) {
		client := &fakeLambdaClient{
			invoke: func(_ context.Context, _ *lambda.InvokeInput) (*lambda.InvokeOutput, error) {
				return &lambda.InvokeOutput{StatusCode: 200, Payload: []byte("not json")}, nil
			},
		}
		l := triggers.NewAWSLambda(client, map[string]string{
			domain.TriggerPreSignUp: "pre-sign-up-fn",
		}, discardLogger())

		_, err := l.Invoke(ctx, domain.TriggerPreSignUp, event)
		assert.ErrorIs(t, err, domain.ErrInvalidLambdaResponse)
	})
}
