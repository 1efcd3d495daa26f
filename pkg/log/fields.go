package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"

	// Actor
	FieldEmail  = "email"
	FieldUserID = "user_id"

	// Service
	FieldService = "service"
)
