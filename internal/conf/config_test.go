package conf

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// loadDefaults resets viper and unmarshals the built-in defaults into a
// fresh Settings struct, without touching the filesystem.
func loadDefaults(t *testing.T) *Settings {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaultConfig()

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		t.Fatalf("unmarshal defaults: %v", err)
	}
	return settings
}

func TestDefaultSettings(t *testing.T) {
	settings := loadDefaults(t)

	if settings.Main.Name != "mixcore" {
		t.Errorf("main.name = %q", settings.Main.Name)
	}
	if settings.Main.Log.Rotation != RotationDaily {
		t.Errorf("main.log.rotation = %q", settings.Main.Log.Rotation)
	}
	if settings.Audio.SampleRate != 48000 || settings.Audio.Channels != 2 {
		t.Errorf("audio defaults = %d Hz %d ch", settings.Audio.SampleRate, settings.Audio.Channels)
	}
	if settings.Audio.Period != 10*time.Millisecond {
		t.Errorf("audio.period = %v", settings.Audio.Period)
	}
	if settings.Simulation.Duration != 2*time.Second {
		t.Errorf("simulation.duration = %v", settings.Simulation.Duration)
	}
	if settings.Simulation.Sources != 2 {
		t.Errorf("simulation.sources = %d", settings.Simulation.Sources)
	}
	if settings.Metrics.Enabled {
		t.Error("metrics should default to disabled")
	}
	if settings.Sentry.Enabled {
		t.Error("sentry should default to disabled")
	}
}

func TestDefaultSettingsValidate(t *testing.T) {
	settings := loadDefaults(t)
	if err := ValidateSettings(settings); err != nil {
		t.Errorf("default settings must validate, got: %v", err)
	}
}

func TestEmbeddedConfigMatchesDefaults(t *testing.T) {
	// The embedded config.yaml seeds new installations; a drifted copy
	// would make first-run behavior differ from documented defaults.
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.SetConfigType("yaml")
	data := getDefaultConfig()
	if data == "" {
		t.Fatal("embedded config.yaml is empty")
	}

	if err := viper.ReadConfig(strings.NewReader(data)); err != nil {
		t.Fatalf("embedded config.yaml does not parse: %v", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		t.Fatalf("unmarshal embedded config: %v", err)
	}
	if err := ValidateSettings(settings); err != nil {
		t.Errorf("embedded config must validate, got: %v", err)
	}
	if settings.Audio.SampleRate != 48000 {
		t.Errorf("embedded audio.samplerate = %d", settings.Audio.SampleRate)
	}
}

func TestDurationFieldsParseFromStrings(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaultConfig()
	viper.Set("audio.period", "20ms")
	viper.Set("simulation.lateby", "1s")

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if settings.Audio.Period != 20*time.Millisecond {
		t.Errorf("audio.period = %v", settings.Audio.Period)
	}
	if settings.Simulation.LateBy != time.Second {
		t.Errorf("simulation.lateby = %v", settings.Simulation.LateBy)
	}
}
