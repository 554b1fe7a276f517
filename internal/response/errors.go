package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"
	ErrNotAttemptOwner  ErrCode = "NOT_ATTEMPT_OWNER"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidSection ErrCode = "INVALID_SECTION"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Tests ─────────────────────────────────────────────────────────
	ErrTestNotPublished ErrCode = "TEST_NOT_PUBLISHED"
	ErrTestNotDraft     ErrCode = "TEST_NOT_DRAFT"
	ErrTestEmpty        ErrCode = "TEST_EMPTY"

	// ─── Attempts ──────────────────────────────────────────────────────
	ErrSectionNotRequested ErrCode = "SECTION_NOT_REQUESTED"
	ErrSectionNotInTest    ErrCode = "SECTION_NOT_IN_TEST"
	ErrSectionSubmitted    ErrCode = "SECTION_ALREADY_SUBMITTED"
	ErrSectionExpired      ErrCode = "SECTION_TIME_EXPIRED"
	ErrSectionNotStarted   ErrCode = "SECTION_NOT_STARTED"
	ErrAttemptCompleted    ErrCode = "ATTEMPT_COMPLETED"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

var messages = map[ErrCode]string{
	ErrTokenRequired: "Authentication token is required.",
	ErrTokenInvalid:  "Authentication token is invalid.",
	ErrTokenExpired:  "Authentication token has expired.",

	ErrForbidden:        "You do not have access to this resource.",
	ErrPermissionDenied: "Permission denied.",
	ErrNotAttemptOwner:  "This attempt belongs to another candidate.",

	ErrValidation:     "Validation failed. Please check your input.",
	ErrInvalidID:      "Invalid ID format.",
	ErrInvalidPayload: "Invalid request payload.",
	ErrInvalidSection: "Unknown section. Expected LISTENING, READING, WRITING or SPEAKING.",

	ErrNotFound: "Resource not found.",
	ErrConflict: "Resource already exists.",

	ErrTestNotPublished: "This test is not published.",
	ErrTestNotDraft:     "This test is not a draft.",
	ErrTestEmpty:        "This test has no questions or tasks.",

	ErrSectionNotRequested: "This section is not part of the attempt.",
	ErrSectionNotInTest:    "This test has no such section.",
	ErrSectionSubmitted:    "This section has already been submitted.",
	ErrSectionExpired:      "Time for this section is over.",
	ErrSectionNotStarted:   "This section has not been opened yet.",
	ErrAttemptCompleted:    "This attempt is already completed.",

	ErrFileRequired:    "A file upload is required.",
	ErrUnsupportedFile: "Unsupported file type.",
	ErrFileTooLarge:    "File size exceeds the limit.",

	ErrRateLimitExceeded: "Too many requests. Please try again later.",

	ErrInternal: "Internal server error.",
}

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "An unexpected error occurred."
}
