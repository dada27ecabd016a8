package domain

// SecurityQuestion is an entry of the question catalog. The catalog is
// owned by an external service; this core only consumes it.
type SecurityQuestion struct {
	ID       int64
	Question string
}
