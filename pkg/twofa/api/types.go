package api

import "github.com/tendant/simple-mfa/pkg/twofa"

// MethodRequest names the method an operation applies to
type MethodRequest struct {
	Method string `json:"method"`
}

// CodeRequest carries a code and, optionally, the method it belongs to
type CodeRequest struct {
	Method string `json:"method,omitempty"`
	Code   string `json:"code"`
}

type MethodsResponse struct {
	Methods []twofa.MethodInfo `json:"methods"`
}

type EnableResponse struct {
	Message string       `json:"message"`
	Method  twofa.Method `json:"method"`
}

type DisableResponse struct {
	Message  string `json:"message"`
	Disabled bool   `json:"disabled"`
}

type SendResponse struct {
	Message string `json:"message"`
}

type VerifyResponse struct {
	Message  string `json:"message"`
	Verified bool   `json:"verified"`
}

type BackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// WebhookResponse is returned to the bot platform after an update
type WebhookResponse struct {
	Linked bool `json:"linked"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
