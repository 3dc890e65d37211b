// Package observability provides Prometheus metrics functionality for monitoring the mixcore runtime.
package observability

import "github.com/tphakala/mixcore/internal/logging"

// Package-level cached logger instance for efficiency.
// All logging in this package should use this variable.
var log = logging.ForService("observability")
