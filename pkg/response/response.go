package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Message    string      `json:"msg,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Details    interface{} `json:"details,omitempty"` // upstream body or validation detail
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// SuccessWithMessage is Success with a human readable message alongside the payload
func SuccessWithMessage(statusCode int, msg string, data interface{}) Response {
	resp := Success(statusCode, data)
	resp.Message = msg
	return resp
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ErrorWithDetails attaches structured details, e.g. the body an upstream service answered with
func ErrorWithDetails(statusCode int, err string, details interface{}) Response {
	resp := Error(statusCode, err)
	resp.Details = details
	return resp
}
