// Package audit records one log entry per HTTP request.
//
// # Overview
//
// The Middleware wraps the whole router. It places an Entry in the request
// context; the authorization layer and handlers fill in the action label
// and the actor as they learn them. Once the response is written the
// middleware derives the outcome from the status code:
//
//	200..298  SUCCESS
//	5xx       SERVER_ERROR
//	other     CLIENT_ERROR
//
// and hands the Record to a Logger in a background goroutine. A failing
// sink is logged and counted but never changes the response.
//
// # Sinks
//
//	db, _ := audit.NewDBLogger(logsRepository)
//	file, _ := audit.NewFileLogger(audit.DefaultFileLoggerConfig("/var/log/civicbase/audit.log"))
//	logger := audit.NewMultiLogger(db, file)
//
// The file sink writes JSON lines through logrus into a lumberjack
// rotating file.
//
// # Export
//
// GET /logs/export?format=csv|json returns the records matching the
// actor, state, action, from and to query parameters.
package audit
