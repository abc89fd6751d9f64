package ir

// Observer receives audit records for mutations performed by rewriting code.
// Implementations must not mutate the objects they are handed.
type Observer interface {
	Record(obj any, operation, details string)
}

// Record forwards to o when it is non-nil.
func Record(o Observer, obj any, operation, details string) {
	if o != nil {
		o.Record(obj, operation, details)
	}
}
