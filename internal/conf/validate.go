// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateMainSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateAudioSettings(&settings.Audio); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateSimulationSettings(&settings.Simulation); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMetricsSettings(&settings.Metrics); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateMainSettings validates the main and logging settings
func validateMainSettings(settings *Settings) error {
	var errs []string

	logc := &settings.Main.Log
	switch logc.Rotation {
	case RotationDaily:
	case RotationWeekly:
		if _, err := ParseWeekday(logc.RotationDay); err != nil {
			errs = append(errs, fmt.Sprintf("log rotation day %q is not a weekday", logc.RotationDay))
		}
	case RotationSize:
		if logc.MaxSize <= 0 {
			errs = append(errs, "log max size must be positive for size rotation")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown log rotation type %q", logc.Rotation))
	}

	if logc.Enabled && logc.Path == "" {
		errs = append(errs, "log path must not be empty when file logging is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// validateAudioSettings validates the stream format and period
func validateAudioSettings(settings *AudioSettings) error {
	var errs []string

	if settings.SampleRate < 8000 || settings.SampleRate > 384000 {
		errs = append(errs, "audio sample rate must be between 8000 and 384000")
	}

	if settings.Channels < 1 || settings.Channels > 32 {
		errs = append(errs, "audio channel count must be between 1 and 32")
	}

	if settings.Period <= 0 || settings.Period > time.Second {
		errs = append(errs, "audio period must be between 0 and 1s")
	}

	// A period shorter than one frame produces empty mix jobs
	if settings.SampleRate > 0 && settings.Period > 0 {
		framesPerPeriod := int64(settings.Period) * int64(settings.SampleRate) / int64(time.Second)
		if framesPerPeriod < 1 {
			errs = append(errs, "audio period must cover at least one frame at the configured sample rate")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// validateSimulationSettings validates the simulate command settings
func validateSimulationSettings(settings *SimulationSettings) error {
	var errs []string

	if settings.Duration <= 0 {
		errs = append(errs, "simulation duration must be positive")
	}

	if settings.PacketDuration <= 0 {
		errs = append(errs, "simulation packet duration must be positive")
	}

	if settings.Sources < 1 {
		errs = append(errs, "simulation needs at least one source")
	}

	if settings.RingFrames < 0 {
		errs = append(errs, "simulation ring frames must not be negative")
	}

	if settings.LatePackets < 0 {
		errs = append(errs, "simulation late packet count must not be negative")
	}

	if settings.LateBy < 0 {
		errs = append(errs, "simulation lateby must not be negative")
	}

	// Matches the clock rate adjustment envelope
	if settings.RateAdjustPPM < -1000 || settings.RateAdjustPPM > 1000 {
		errs = append(errs, "simulation rate adjustment must be between -1000 and 1000 ppm")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// validateMetricsSettings validates the prometheus endpoint settings
func validateMetricsSettings(settings *MetricsSettings) error {
	if !settings.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		return fmt.Errorf("metrics listen address %q is not host:port: %w", settings.Listen, err)
	}
	return nil
}

// validateOutputSettings validates the run output settings
func validateOutputSettings(settings *Settings) error {
	var errs []string

	if settings.Output.File.Enabled && settings.Output.File.Path == "" {
		errs = append(errs, "output file path must not be empty when file output is enabled")
	}

	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		errs = append(errs, "output sqlite path must not be empty when sqlite output is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
