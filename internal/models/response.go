package models

// ErrorResponse - тело ответа об ошибке.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Коды ошибок API.
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeProtectedNode     = "PROTECTED_NODE"
	ErrCodeDuplicateID       = "DUPLICATE_ID"
	ErrCodeEmptyID           = "EMPTY_ID"
	ErrCodeIndex             = "INDEX_OUT_OF_RANGE"
	ErrCodeInvalidField      = "INVALID_FIELD"
	ErrCodeDanglingReference = "DANGLING_REFERENCE"
	ErrCodeNotPlaying        = "NOT_PLAYING"
	ErrCodeInvalidSession    = "INVALID_SESSION"
	ErrCodeParse             = "PARSE_ERROR"
	ErrCodeSchema            = "SCHEMA_ERROR"
	ErrCodeFormat            = "FORMAT_ERROR"
	ErrCodeQuestNotFound     = "QUEST_NOT_FOUND"
	ErrCodeStorageOffline    = "STORAGE_OFFLINE"
	ErrCodeTooLarge          = "PAYLOAD_TOO_LARGE"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeUnavailable       = "UNAVAILABLE"
	ErrCodeInternal          = "INTERNAL_ERROR"
)
