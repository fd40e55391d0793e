// Package logger wraps zap to provide:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and configuration,
//   - convenience functions (InfoKV, ErrorKV, etc.).
//
// Every reconciliation step takes a context and logs through the logger
// stored in it, so run and channel identifiers follow each line.
package logger
