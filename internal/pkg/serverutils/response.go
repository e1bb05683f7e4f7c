package serverutils

type Response struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Kind     string            `json:"kind,omitempty"`
	Guidance string            `json:"guidance,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func SuccessResponse(message string, data interface{}) Response {
	return Response{
		Success: true,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string, body *ErrorBody) Response {
	return Response{
		Success: false,
		Code:    code,
		Message: message,
		Error:   body,
	}
}
