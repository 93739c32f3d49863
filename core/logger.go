package core

// Logger is any service that can log application events.
// args may carry errors, extra data maps or an Owner to attach to the event.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Owner identifies the signed-in user whose data is being handled.
type Owner struct {
	ID    string
	Email string
}
