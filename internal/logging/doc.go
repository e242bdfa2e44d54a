// Package logger provides leveled logging for Magpie CLI commands.
//
// The logger supports multiple verbosity levels controlled by
// command-line flags:
//
//   - --verbose: shows info and warning messages
//   - --debug: shows all messages including debug details
//
// Without flags, only critical warnings and errors are shown.
//
// # Log Methods
//
//	Logger.Infof()           // Shown with --verbose or --debug
//	Logger.Debugf()          // Shown only with --debug
//	Logger.Warnf()           // Shown with --verbose or --debug
//	Logger.WarnfAlways()     // Always shown (critical warnings)
//	Logger.Errorf()          // Always shown
//	Logger.ErrorfAndReturn() // Logs and returns the error
//	Logger.Fatalf()          // Always shown, then exits
//
// Commands create a logger in their PersistentPreRun and pass it to
// internal functions.
package logger
