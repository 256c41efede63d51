package bytrofront

import "errors"

var (
	ErrInvalidConfig   = errors.New("invalid client configuration")
	ErrEmptyResult     = errors.New("empty result payload")
	ErrLoginFailed     = errors.New("login failed")
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
)

// knownErrors maps the backend's short failure messages to their long
// descriptions. Domain absence is represented as a structured result, never
// as a Go error; transport and configuration failures use the sentinels
// above instead.
var knownErrors = map[string]string{
	"game not found": "The provided game ID was not found. Have you entered the proper client configuration?",
	"user not found": "The provided user ID was not found. Have you entered the proper client configuration?",
}

// ErrorResult builds the structured failure result for a known domain error
// message. Unknown messages still produce a -1 result with a generic
// description.
func ErrorResult(resultMessage string) *ApiResult {
	large, ok := knownErrors[resultMessage]
	if !ok {
		large = "Unknown error"
	}
	return &ApiResult{
		ResultCode:         -1,
		ResultMessage:      resultMessage,
		ResultMessageLarge: large,
		Result:             nil,
		Version:            apiBuildVersion,
	}
}
