package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// InitLogger creates a console logger at the configured level.
// Callers pass the returned logger down explicitly.
func InitLogger(config *Config) arbor.ILogger {
	level := "info"
	if config != nil && config.Logging.Level != "" {
		level = config.Logging.Level
	}
	return arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		OutputType:       models.OutputFormatLogfmt,
		DisableTimestamp: false,
	}).WithLevelFromString(level)
}
