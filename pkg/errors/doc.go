// Package errors provides structured error handling with error codes for simple-mfa.
//
// Errors carry a typed ErrorCode, a human-readable message, optional details and an
// optional wrapped cause. Every code maps to an HTTP status so handlers can translate
// service errors without inspecting messages.
//
// # Basic Usage
//
//	err := errors.New(errors.ErrCode2FANotSetup, "two-factor method not set up")
//	err := errors.Wrap(dbErr, errors.ErrCodeInternal, "failed to load security record")
//
//	if errors.IsCode(err, errors.ErrCode2FALocked) {
//	    // show a cool-down message
//	}
//
//	status := errors.MapErrorCodeToHTTPStatus(errors.GetCode(err))
//
// # Two-Factor Codes
//
//   - ErrCodeUnknownMethod: method outside the closed enumeration (400)
//   - ErrCode2FANotSetup: verify or enable before setup (404)
//   - ErrCode2FALocked: verification withheld during lockout (423)
//   - ErrCode2FAInvalid: wrong or expired code (401)
//   - ErrCode2FADeliveryFailed: transport could not send a code (503)
//
// Package level sentinels built with New match wrapped copies through errors.Is,
// because Error.Is compares codes.
package errors
