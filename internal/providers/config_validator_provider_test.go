package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"geoalert/internal/structures"
)

func validConfig() *structures.Config {
	return &structures.Config{
		WebServer: structures.Server{
			Host: "0.0.0.0",
			Port: 8090,
		},
		Persistence: structures.Persistence{
			FilePath:     "/tmp/geoalert.dat",
			SaveInterval: 30 * time.Second,
		},
		Logger: structures.LoggerConfig{
			Level: "info",
			Mode:  0644,
			Dir:   "/tmp/logs",
		},
		Storage: structures.StorageConfig{
			Driver: "memory",
		},
		Engine: structures.EngineConfig{
			PollInterval:     30 * time.Second,
			ToleranceMinutes: 1,
		},
	}
}

func TestConfigValidator_ValidConfig(t *testing.T) {
	v := NewCnfValidator(validConfig())
	assert.NoError(t, v.Validate())
}

func TestConfigValidator_EmptyHost(t *testing.T) {
	c := validConfig()
	c.WebServer.Host = ""
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_ZeroPort(t *testing.T) {
	c := validConfig()
	c.WebServer.Port = 0
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_InvalidLogLevel(t *testing.T) {
	c := validConfig()
	c.Logger.Level = "verbose"
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_UnknownDriver(t *testing.T) {
	c := validConfig()
	c.Storage.Driver = "postgres"
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_SQLiteNeedsPath(t *testing.T) {
	c := validConfig()
	c.Storage.Driver = "sqlite"
	assert.Error(t, NewCnfValidator(c).Validate())

	c.Storage.SQLitePath = "/tmp/geoalert.db"
	assert.NoError(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_PollIntervalTooLong(t *testing.T) {
	c := validConfig()
	c.Engine.PollInterval = 2 * time.Minute
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_BadTimezone(t *testing.T) {
	c := validConfig()
	c.Engine.Timezone = "Mars/Olympus"
	assert.Error(t, NewCnfValidator(c).Validate())
}
