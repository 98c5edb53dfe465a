package core

// Logger is any leveled logging service.
// Args may carry extra context: error, map[string]interface{}, user.Principal.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
