package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrAuthDisabled       ErrCode = "AUTH_DISABLED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Tests ─────────────────────────────────────────────────────────
	ErrMalformedLayout   ErrCode = "MALFORMED_LAYOUT"
	ErrInvalidAnswerKey  ErrCode = "INVALID_ANSWER_KEY"
	ErrTestNotReady      ErrCode = "TEST_NOT_READY"
	ErrTestArchived      ErrCode = "TEST_ARCHIVED"
	ErrLayoutNotFound    ErrCode = "LAYOUT_NOT_FOUND"
	ErrAnswerKeyNotFound ErrCode = "ANSWER_KEY_NOT_FOUND"

	// ─── Jobs ──────────────────────────────────────────────────────────
	ErrJobState         ErrCode = "INVALID_JOB_STATE"
	ErrNoScans          ErrCode = "NO_SCANS_UPLOADED"
	ErrReportNotFound   ErrCode = "REPORT_NOT_FOUND"
	ErrUnreadableUpload ErrCode = "UNREADABLE_UPLOAD"

	// ─── Uploads ───────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid operator secret."
	case ErrAuthDisabled:
		return "Operator authentication is not configured on this server."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "One or more fields failed validation."
	case ErrInvalidID:
		return "The supplied identifier is invalid."
	case ErrInvalidPayload:
		return "The request payload could not be parsed."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The request conflicts with the current resource state."

	// ─── Tests ─────────────────────────────────────────────────────────
	case ErrMalformedLayout:
		return "The layout definition is malformed."
	case ErrInvalidAnswerKey:
		return "The answer key is invalid."
	case ErrTestNotReady:
		return "The test needs both a layout and an answer key before grading."
	case ErrTestArchived:
		return "The test is archived."
	case ErrLayoutNotFound:
		return "No layout has been stored for this test."
	case ErrAnswerKeyNotFound:
		return "No answer key has been stored for this test."

	// ─── Jobs ──────────────────────────────────────────────────────────
	case ErrJobState:
		return "The job is not in a state that allows this operation."
	case ErrNoScans:
		return "No scans have been uploaded for this job."
	case ErrReportNotFound:
		return "No report has been generated for this job."
	case ErrUnreadableUpload:
		return "The uploaded archive could not be read."

	// ─── Uploads ───────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "The uploaded file type is not supported."
	case ErrFileTooLarge:
		return "The uploaded file exceeds the size limit."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please slow down."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	}
	return "An unknown error occurred."
}
