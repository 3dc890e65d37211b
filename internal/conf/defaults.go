// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "mixcore")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "mixcore.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)
	viper.SetDefault("main.log.rotationday", "Sunday")

	viper.SetDefault("audio.samplerate", 48000)
	viper.SetDefault("audio.channels", 2)
	viper.SetDefault("audio.period", "10ms")
	viper.SetDefault("audio.strictorder", false)

	viper.SetDefault("simulation.duration", "2s")
	viper.SetDefault("simulation.packetduration", "10ms")
	viper.SetDefault("simulation.sources", 2)
	viper.SetDefault("simulation.input", "")
	viper.SetDefault("simulation.ringframes", 9600)
	viper.SetDefault("simulation.latepackets", 0)
	viper.SetDefault("simulation.lateby", "0s")
	viper.SetDefault("simulation.pace", false)
	viper.SetDefault("simulation.rateadjustppm", 0)

	viper.SetDefault("graph.topology", "")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", "0.0.0.0:8090")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.debug", false)

	viper.SetDefault("output.file.enabled", true)
	viper.SetDefault("output.file.path", "output/")

	viper.SetDefault("output.sqlite.enabled", false)
	viper.SetDefault("output.sqlite.path", "mixcore.db")
}
