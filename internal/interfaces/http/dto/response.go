package dto

// Response represents a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail describes one rejected field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta describes a bounded list
type Meta struct {
	Count int `json:"count"`
	Limit int `json:"limit"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewListResponse creates a success response for a list capped at limit
func NewListResponse(data any, count, limit int) Response {
	return Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{Count: count, Limit: limit},
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return NewErrorResponseWithRequestID(code, message, "")
}

// NewErrorResponseWithRequestID creates an error response tagged with the request id
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// NewValidationErrorResponse creates a validation error response with field details
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      ErrCodeValidation,
			Message:   message,
			RequestID: requestID,
			Details:   details,
		},
	}
}

// ---------------------------------------------------------------------------
// Supplier webhook envelope
// ---------------------------------------------------------------------------

// WebhookResponse is the fixed envelope the supplier expects from a push
// endpoint. It is always sent with HTTP 200.
type WebhookResponse struct {
	Code      int    `json:"code"`
	Result    bool   `json:"result"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	RequestID string `json:"requestId"`
}

// WebhookAck is the data part of a webhook acknowledgement
type WebhookAck struct {
	MessageID string `json:"messageId,omitempty"`
	Ping      bool   `json:"ping,omitempty"`
	Completed bool   `json:"completed"`
	Status    string `json:"status,omitempty"`
}

// NewWebhookResponse wraps an acknowledgement in the supplier envelope
func NewWebhookResponse(ack WebhookAck, requestID string) WebhookResponse {
	return WebhookResponse{
		Code:      200,
		Result:    true,
		Message:   "success",
		Data:      ack,
		RequestID: requestID,
	}
}
