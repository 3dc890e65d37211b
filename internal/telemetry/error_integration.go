// Package telemetry - integration with the error handling system
package telemetry

import (
	"github.com/tphakala/mixcore/internal/conf"
	"github.com/tphakala/mixcore/internal/errors"
	"github.com/tphakala/mixcore/internal/privacy"
)

// InitializeErrorIntegration sets up the error package to report through
// telemetry when enabled. Safe to call before InitSentry, reports are only
// sent once the SDK is up.
func InitializeErrorIntegration() {
	settings := conf.GetSettings()
	enabled := settings != nil && settings.Sentry.Enabled

	reporter := errors.NewSentryReporter(enabled)
	errors.SetTelemetryReporter(reporter)

	errors.SetPrivacyScrubber(privacy.ScrubMessage)
}

// UpdateErrorIntegration updates the error integration when telemetry
// settings change
func UpdateErrorIntegration(enabled bool) {
	reporter := errors.NewSentryReporter(enabled)
	errors.SetTelemetryReporter(reporter)
}
