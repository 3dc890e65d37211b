package conf

import (
	"strings"
	"testing"
	"time"
)

// TestValidateAudioSettings_Valid verifies valid audio configurations pass.
func TestValidateAudioSettings_Valid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		config AudioSettings
	}{
		{
			name:   "defaults",
			config: AudioSettings{SampleRate: 48000, Channels: 2, Period: 10 * time.Millisecond},
		},
		{
			name:   "mono telephony",
			config: AudioSettings{SampleRate: 8000, Channels: 1, Period: 20 * time.Millisecond},
		},
		{
			name:   "high rate multichannel",
			config: AudioSettings{SampleRate: 384000, Channels: 32, Period: time.Millisecond},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if err := validateAudioSettings(&tc.config); err != nil {
				t.Errorf("expected valid config, got: %v", err)
			}
		})
	}
}

// TestValidateAudioSettings_Invalid verifies broken audio configurations fail
// with a message naming the broken field.
func TestValidateAudioSettings_Invalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		config  AudioSettings
		wantMsg string
	}{
		{
			name:    "sample rate too low",
			config:  AudioSettings{SampleRate: 4000, Channels: 2, Period: 10 * time.Millisecond},
			wantMsg: "sample rate",
		},
		{
			name:    "zero channels",
			config:  AudioSettings{SampleRate: 48000, Channels: 0, Period: 10 * time.Millisecond},
			wantMsg: "channel count",
		},
		{
			name:    "zero period",
			config:  AudioSettings{SampleRate: 48000, Channels: 2, Period: 0},
			wantMsg: "period",
		},
		{
			name:    "period above one second",
			config:  AudioSettings{SampleRate: 48000, Channels: 2, Period: 2 * time.Second},
			wantMsg: "period",
		},
		{
			name:    "period under one frame",
			config:  AudioSettings{SampleRate: 8000, Channels: 1, Period: 10 * time.Microsecond},
			wantMsg: "at least one frame",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := validateAudioSettings(&tc.config)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestValidateSimulationSettings(t *testing.T) {
	t.Parallel()

	valid := SimulationSettings{
		Duration:       2 * time.Second,
		PacketDuration: 10 * time.Millisecond,
		Sources:        2,
		RingFrames:     9600,
		RateAdjustPPM:  1000,
	}
	if err := validateSimulationSettings(&valid); err != nil {
		t.Errorf("expected valid config, got: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*SimulationSettings)
	}{
		{"zero duration", func(s *SimulationSettings) { s.Duration = 0 }},
		{"zero packet duration", func(s *SimulationSettings) { s.PacketDuration = 0 }},
		{"no sources", func(s *SimulationSettings) { s.Sources = 0 }},
		{"negative ring", func(s *SimulationSettings) { s.RingFrames = -1 }},
		{"negative late packets", func(s *SimulationSettings) { s.LatePackets = -1 }},
		{"negative lateby", func(s *SimulationSettings) { s.LateBy = -time.Millisecond }},
		{"rate adjust out of range", func(s *SimulationSettings) { s.RateAdjustPPM = 1001 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			config := valid
			tc.mutate(&config)
			if err := validateSimulationSettings(&config); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidateMetricsSettings(t *testing.T) {
	t.Parallel()

	disabled := MetricsSettings{Enabled: false, Listen: "not an address"}
	if err := validateMetricsSettings(&disabled); err != nil {
		t.Errorf("disabled metrics should skip listen validation, got: %v", err)
	}

	enabled := MetricsSettings{Enabled: true, Listen: "0.0.0.0:8090"}
	if err := validateMetricsSettings(&enabled); err != nil {
		t.Errorf("expected valid listen address, got: %v", err)
	}

	bad := MetricsSettings{Enabled: true, Listen: "no-port"}
	if err := validateMetricsSettings(&bad); err == nil {
		t.Error("expected error for address without port")
	}
}

func TestValidateMainSettings(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		log     LogConfig
		wantErr bool
	}{
		{"daily", LogConfig{Enabled: true, Path: "a.log", Rotation: RotationDaily}, false},
		{"weekly with day", LogConfig{Enabled: true, Path: "a.log", Rotation: RotationWeekly, RotationDay: "Monday"}, false},
		{"weekly bad day", LogConfig{Enabled: true, Path: "a.log", Rotation: RotationWeekly, RotationDay: "Someday"}, true},
		{"size with max", LogConfig{Enabled: true, Path: "a.log", Rotation: RotationSize, MaxSize: 1024}, false},
		{"size without max", LogConfig{Enabled: true, Path: "a.log", Rotation: RotationSize}, true},
		{"unknown rotation", LogConfig{Enabled: true, Path: "a.log", Rotation: "hourly"}, true},
		{"enabled without path", LogConfig{Enabled: true, Rotation: RotationDaily}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			settings := &Settings{}
			settings.Main.Log = tc.log
			err := validateMainSettings(settings)
			if tc.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("expected valid config, got: %v", err)
			}
		})
	}
}

func TestValidateSettingsCollectsAllErrors(t *testing.T) {
	t.Parallel()

	settings := &Settings{}
	settings.Main.Log = LogConfig{Rotation: "bogus"}
	settings.Audio = AudioSettings{SampleRate: 1, Channels: 0, Period: 0}
	settings.Simulation = SimulationSettings{}
	settings.Metrics = MetricsSettings{Enabled: true, Listen: "bad"}

	err := ValidateSettings(settings)
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(ve.Errors) < 4 {
		t.Errorf("expected errors from all broken sections, got %d: %v", len(ve.Errors), ve.Errors)
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	day, err := ParseWeekday("monday")
	if err != nil || day != time.Monday {
		t.Errorf("ParseWeekday(monday) = %v, %v", day, err)
	}
	day, err = ParseWeekday("Sunday")
	if err != nil || day != time.Sunday {
		t.Errorf("ParseWeekday(Sunday) = %v, %v", day, err)
	}
	if _, err := ParseWeekday("Caturday"); err == nil {
		t.Error("expected error for invalid weekday")
	}
}
