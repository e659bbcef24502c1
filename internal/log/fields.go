package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldRoute      = "route"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldExpenseID  = "expense_id"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldBackend    = "backend"
	FieldCount      = "count"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentExpense   = "expense"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentBackend   = "backend"
	ComponentRateLimit = "rate_limit"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpCreate      = "create"
	OpList        = "list"
	OpListByMonth = "list_by_month"
	OpTotals      = "totals"
	OpPublish     = "publish"
	OpMigrate     = "migrate"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field; a nil error adds nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(id int64, amount float64, category string) LogFields {
	f[FieldExpenseID] = id
	f[FieldAmount] = amount
	f[FieldCategory] = category
	return f
}

func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
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
