package domain

import "time"

// User statuses. Transitions are driven by the auth flow handlers:
// SignUp creates UNCONFIRMED, ConfirmSignUp moves to CONFIRMED,
// ForgotPassword moves to RESET_REQUIRED, AdminCreateUser creates
// FORCE_CHANGE_PASSWORD.
const (
	StatusUnconfirmed         = "UNCONFIRMED"
	StatusConfirmed           = "CONFIRMED"
	StatusForceChangePassword = "FORCE_CHANGE_PASSWORD"
	StatusResetRequired       = "RESET_REQUIRED"
	StatusArchived            = "ARCHIVED"
	StatusUnknown             = "UNKNOWN"
)

// MFA configuration values for a user pool.
const (
	MfaOff      = "OFF"
	MfaOptional = "OPTIONAL"
	MfaOn       = "ON"
)

// Auth flows accepted by InitiateAuth / AdminInitiateAuth.
const (
	FlowUserPasswordAuth      = "USER_PASSWORD_AUTH"
	FlowAdminUserPasswordAuth = "ADMIN_USER_PASSWORD_AUTH"
	FlowAdminNoSRPAuth        = "ADMIN_NO_SRP_AUTH"
	FlowRefreshToken          = "REFRESH_TOKEN"
	FlowRefreshTokenAuth      = "REFRESH_TOKEN_AUTH"
)

// Challenge names returned mid-flow.
const (
	ChallengePasswordVerifier    = "PASSWORD_VERIFIER"
	ChallengeSmsMfa              = "SMS_MFA"
	ChallengeNewPasswordRequired = "NEW_PASSWORD_REQUIRED"
)

// Delivery mediums for codes and MFA.
const (
	DeliverySMS   = "SMS"
	DeliveryEmail = "EMAIL"
)

// Well-known attribute names.
const (
	AttrSub                 = "sub"
	AttrEmail               = "email"
	AttrPhoneNumber         = "phone_number"
	AttrEmailVerified       = "email_verified"
	AttrPhoneNumberVerified = "phone_number_verified"
)

// Trigger names, as they appear in configuration and in the enablement
// probe.
const (
	TriggerCustomMessage      = "CustomMessage"
	TriggerPostAuthentication = "PostAuthentication"
	TriggerPostConfirmation   = "PostConfirmation"
	TriggerPreSignUp          = "PreSignUp"
	TriggerPreTokenGeneration = "PreTokenGeneration"
	TriggerUserMigration      = "UserMigration"
)

// DefaultRefreshTokenValidity is the app client refresh token validity
// applied when CreateUserPoolClient does not specify one.
const DefaultRefreshTokenValidity = 30 // days

// TokenValidity is the lifetime of issued id and access tokens.
const TokenValidity = 24 * time.Hour

// LambdaTimeout bounds a single synchronous trigger invocation.
const LambdaTimeout = 15 * time.Second

// Shutdown sequencing budgets for the lifecycle runner.
const (
	ShutdownDrainDelay  = 100 * time.Millisecond // let in-flight requests land before draining
	ShutdownHTTPTimeout = 10 * time.Second       // max time to drain the HTTP server
	ShutdownOTELTimeout = 5 * time.Second        // max time to flush telemetry
)
