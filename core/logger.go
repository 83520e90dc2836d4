package core

// Person identifies the logged in user in error reports.
type Person struct {
	ID    string
	Name  string
	Email string
}

// Logger is any service that can log app events.
// args may contain errors, maps, or a Person (which sets the reporting identity and is not printed).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
