package xrealm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound marks "no such principal" and "no such attribute" conditions
// from an AttributeSource. The engine treats it as an empty entry set, not a
// storage failure.
var ErrNotFound = errors.New("not found")

// Policy error codes.
const (
	ErrCodePolicyRejected = "xrealm.policy_rejected" // No rule authorizes the request
	ErrCodeInvalidRequest = "xrealm.invalid_request" // Request is missing required identity fields
)

// httpStatusMap maps error codes to HTTP status codes.
var httpStatusMap = map[string]int{
	ErrCodePolicyRejected: http.StatusForbidden,  // 403
	ErrCodeInvalidRequest: http.StatusBadRequest, // 400
}

// PolicyError represents a policy-layer failure with a structured code.
// The message for a rejection is deliberately generic: a denied requester
// learns nothing about which rule, or absence of one, caused the denial.
type PolicyError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus returns the HTTP status code for this error.
func (e *PolicyError) HTTPStatus() int {
	return e.Status
}

// NewPolicyError creates a PolicyError with the status for its code.
func NewPolicyError(code, message string) *PolicyError {
	return &PolicyError{
		Code:    code,
		Message: message,
		Status:  httpStatusMap[code],
	}
}

// ErrPolicyRejected is the rejection the host surfaces for a denied request.
// The message matches what Kerberos clients observe from the protocol layer.
var ErrPolicyRejected = NewPolicyError(ErrCodePolicyRejected, "KDC policy rejects request")
