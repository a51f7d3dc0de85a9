package dto

// Error codes returned in failure bodies
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeTransformFailed = "TRANSFORM_FAILED"
	CodeMissingArtifact = "MISSING_ARTIFACT"
	CodeNotFound        = "NOT_FOUND"
	CodeBusy            = "BUSY"
	CodeRateLimited     = "RATE_LIMITED"
	CodeLedgerDisabled  = "LEDGER_DISABLED"
	CodeInternal        = "INTERNAL"
)

type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Failure builds the body for an unsuccessful request
func Failure(code, message string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: APIError{
			Code:    code,
			Message: message,
		},
	}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
}
