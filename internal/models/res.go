package models

import "errors"

type ApiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    ErrorKind   `json:"kind,omitempty"`
	Code    string      `json:"code,omitempty"`
	Total   int         `json:"total,omitempty"`
}

func SuccessResponse(data interface{}, message string) ApiResponse {
	return ApiResponse{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func ErrorResponse(err string) ApiResponse {
	return ApiResponse{
		Success: false,
		Error:   err,
	}
}

// FailureResponse carries the kind and code of err so the UI can react per
// failure instead of showing a generic message.
func FailureResponse(err error) ApiResponse {
	msg := err.Error()
	var appErr *AppError
	if errors.As(err, &appErr) {
		msg = appErr.Error()
	}
	return ApiResponse{
		Success: false,
		Error:   msg,
		Kind:    KindOf(err),
		Code:    CodeOf(err),
	}
}

func ListResponse(data interface{}, total int) ApiResponse {
	return ApiResponse{
		Success: true,
		Data:    data,
		Total:   total,
	}
}
