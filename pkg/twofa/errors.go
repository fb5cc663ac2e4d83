package twofa

import (
	apperrors "github.com/tendant/simple-mfa/pkg/errors"
)

// Sentinel errors. Match them with errors.Is; wrapped copies carrying the
// same code match too.
var (
	ErrUnknownMethod  = apperrors.New(apperrors.ErrCodeUnknownMethod, "unknown two-factor method")
	ErrNotSetup       = apperrors.New(apperrors.ErrCode2FANotSetup, "two-factor method is not set up")
	ErrLocked         = apperrors.New(apperrors.ErrCode2FALocked, "too many failed attempts, try again later")
	ErrInvalidCode    = apperrors.New(apperrors.ErrCode2FAInvalid, "invalid verification code")
	ErrDeliveryFailed = apperrors.New(apperrors.ErrCode2FADeliveryFailed, "verification code could not be delivered")
	ErrNotConfigured  = apperrors.New(apperrors.ErrCodeNotConfigured, "two-factor method is not configured")
)

func unknownMethod(method string) error {
	return apperrors.Newf(apperrors.ErrCodeUnknownMethod, "unknown two-factor method: %q", method)
}

func notSetup(userID string, method Method) error {
	return apperrors.Newf(apperrors.ErrCode2FANotSetup, "%s is not set up", method).
		WithDetail("user_id", userID)
}
