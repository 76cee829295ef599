// Package observability builds the zap logger and the request logging
// middleware shared by the gateway and the CLI.
package observability
