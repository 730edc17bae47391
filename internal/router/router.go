package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/aelexs/cognitolocal/internal/domain"
	"github.com/aelexs/cognitolocal/internal/targets"
)

const contentType = "application/x-amz-json-1.1"

// maxBodyBytes caps request bodies; attribute lists are small.
const maxBodyBytes = 1 << 20

var tracer = otel.Tracer("cognitolocal/router")

var (
	requestsTotal      metric.Int64Counter
	requestErrorsTotal metric.Int64Counter
)

func init() {
	meter := otel.Meter("cognitolocal/router")
	requestsTotal, _ = meter.Int64Counter("idp_requests_total",
		metric.WithDescription("Operations dispatched by target name"))
	requestErrorsTotal, _ = meter.Int64Counter("idp_request_errors_total",
		metric.WithDescription("Operations that returned a wire error"))
}

// handlerFunc decodes one operation's request body and invokes it.
type handlerFunc func(ctx context.Context, body []byte) (any, error)

// Router dispatches POST / requests to the target named by the
// X-Amz-Target header and renders results as amz-json-1.1.
type Router struct {
	handlers map[string]handlerFunc
	logger   *slog.Logger
}

var _ http.Handler = (*Router)(nil)

// New builds the operation dispatch table over t.
func New(t *targets.Targets, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger: logger,
		handlers: map[string]handlerFunc{
			"SignUp":             handle(t.SignUp),
			"ConfirmSignUp":      handle(t.ConfirmSignUp),
			"AdminConfirmSignUp": handle(t.AdminConfirmSignUp),
			"AdminCreateUser":    handle(t.AdminCreateUser),

			"GetUser":         handle(t.GetUser),
			"AdminGetUser":    handle(t.AdminGetUser),
			"ListUsers":       handle(t.ListUsers),
			"DeleteUser":      handle(t.DeleteUser),
			"AdminDeleteUser": handle(t.AdminDeleteUser),

			"InitiateAuth":           handle(t.InitiateAuth),
			"AdminInitiateAuth":      handle(t.AdminInitiateAuth),
			"RespondToAuthChallenge": handle(t.RespondToAuthChallenge),
			"RevokeToken":            handle(t.RevokeToken),

			"ForgotPassword":        handle(t.ForgotPassword),
			"ConfirmForgotPassword": handle(t.ConfirmForgotPassword),
			"ChangePassword":        handle(t.ChangePassword),
			"AdminSetUserPassword":  handle(t.AdminSetUserPassword),

			"UpdateUserAttributes":             handle(t.UpdateUserAttributes),
			"AdminUpdateUserAttributes":        handle(t.AdminUpdateUserAttributes),
			"DeleteUserAttributes":             handle(t.DeleteUserAttributes),
			"AdminDeleteUserAttributes":        handle(t.AdminDeleteUserAttributes),
			"GetUserAttributeVerificationCode": handle(t.GetUserAttributeVerificationCode),
			"VerifyUserAttribute":              handle(t.VerifyUserAttribute),

			"CreateUserPool":       handle(t.CreateUserPool),
			"DescribeUserPool":     handle(t.DescribeUserPool),
			"DeleteUserPool":       handle(t.DeleteUserPool),
			"ListUserPools":        handle(t.ListUserPools),
			"GetUserPoolMfaConfig": handle(t.GetUserPoolMfaConfig),

			"CreateUserPoolClient":   handle(t.CreateUserPoolClient),
			"DescribeUserPoolClient": handle(t.DescribeUserPoolClient),
			"DeleteUserPoolClient":   handle(t.DeleteUserPoolClient),

			"CreateGroup": handle(t.CreateGroup),
			"ListGroups":  handle(t.ListGroups),
		},
	}
}

// handle adapts a typed target method into a handlerFunc.
func handle[Req, Resp any](fn func(context.Context, *Req) (*Resp, error)) handlerFunc {
	return func(ctx context.Context, body []byte) (any, error) {
		req := new(Req)
		if len(body) > 0 {
			if err := json.Unmarshal(body, req); err != nil {
				return nil, domain.InvalidParameter("Invalid JSON request body")
			}
		}
		return fn(ctx, req)
	}
}

// Dispatch runs the named operation against a raw JSON body. Unknown
// operations map to UnsupportedError.
func (r *Router) Dispatch(ctx context.Context, operation string, body []byte) (any, error) {
	handler, ok := r.handlers[operation]
	if !ok {
		return nil, domain.Unsupported("%s is not implemented", operation)
	}
	return handler(ctx, body)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	requestID := uuid.NewString()
	logger := r.logger.With(slog.String("request_id", requestID))

	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, domain.Unsupported("%s is not supported", req.Method))
		return
	}

	operation := operationName(req.Header.Get("X-Amz-Target"))
	if operation == "" {
		writeError(w, domain.InvalidParameter("Missing X-Amz-Target header"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		writeError(w, domain.InvalidParameter("Unreadable request body"))
		return
	}

	ctx, span := tracer.Start(req.Context(), "router."+operation,
		trace.WithAttributes(attribute.String("idp.operation", operation)))
	defer span.End()
	requestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))

	start := time.Now()
	response, err := r.Dispatch(ctx, operation, body)
	elapsed := time.Since(start)
	if err != nil {
		requestErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
		status, wireBody := translate(err)
		logger.WarnContext(ctx, "operation failed",
			slog.String("operation", operation),
			slog.String("error_type", wireBody.Type),
			slog.Int("status", status),
			slog.Duration("duration", elapsed))
		writeJSON(w, status, wireBody)
		return
	}

	logger.DebugContext(ctx, "operation completed",
		slog.String("operation", operation),
		slog.Duration("duration", elapsed))
	writeJSON(w, http.StatusOK, response)
}

// operationName strips the service prefix from an X-Amz-Target value,
// e.g. "AWSCognitoIdentityProviderService.SignUp" -> "SignUp".
func operationName(target string) string {
	if target == "" {
		return ""
	}
	if i := strings.LastIndex(target, "."); i >= 0 {
		return target[i+1:]
	}
	return target
}

func writeError(w http.ResponseWriter, err error) {
	status, body := translate(err)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
