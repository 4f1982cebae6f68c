package core

type (
	// LogFields are structured extras attached to a log entry.
	LogFields map[string]interface{}

	// Logger is any service that can log.
	// args may hold an error and/or LogFields.
	Logger interface {
		Debug(msg string, args ...interface{})
		Info(msg string, args ...interface{})
		Warn(msg string, args ...interface{})
		Error(msg string, args ...interface{})
		Fatal(msg string, args ...interface{})
	}
)
