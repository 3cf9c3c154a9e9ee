package core

// Logger logs messages along with optional extras.
// Extras may be errors, map[string]interface{} or the user the message relates to.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the user a log entry relates to.
type Person interface {
	LogPerson() (id, username, email string)
}
