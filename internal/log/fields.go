package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldCommand       = "command"
	FieldTransactionID = "transaction_id"
	FieldCategory      = "category"
	FieldType          = "type"
	FieldAmount        = "amount"
	FieldFilter        = "filter"
	FieldStorageKey    = "storage_key"
	FieldBackend       = "backend"
	FieldCount         = "count"
	FieldBytes         = "bytes"
	FieldMode          = "mode"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentTracker  = "tracker"
	ComponentSession  = "session"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentBackend  = "backend"
	ComponentTaxonomy = "taxonomy"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSave     = "save"
	OpLoad     = "load"
	OpSeed     = "seed"
	OpPublish  = "publish"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypePersistence   = "persistence_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

// WithTransaction adds the identifying fields of a record
func (f LogFields) WithTransaction(id int64, category, typ, amount string) LogFields {
	f[FieldTransactionID] = id
	f[FieldCategory] = category
	f[FieldType] = typ
	f[FieldAmount] = amount
	return f
}

func (f LogFields) WithHTTPRequest(method, path, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
