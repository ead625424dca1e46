package shared

// DomainError is a business-rule violation with a stable machine code
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// ErrNotFound is returned by repositories when no row matches. Callers use
// errors.Is against it to separate absence from infrastructure failure.
var ErrNotFound = NewDomainError("NOT_FOUND", "Resource not found")
