package providers

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"geoalert/internal/structures"
)

var envBindings = map[string]string{
	"webServer.host":             "GEOALERT_HOST",
	"webServer.port":             "GEOALERT_PORT",
	"logger.level":               "GEOALERT_LOG_LEVEL",
	"logger.dir":                 "GEOALERT_LOG_DIR",
	"storage.driver":             "GEOALERT_STORAGE_DRIVER",
	"storage.sqlitePath":         "GEOALERT_SQLITE_PATH",
	"persistence.filePath":       "GEOALERT_SNAPSHOT_PATH",
	"persistence.saveInterval":   "GEOALERT_SAVE_INTERVAL",
	"engine.pollInterval":        "GEOALERT_POLL_INTERVAL",
	"engine.timezone":            "GEOALERT_TIMEZONE",
	"engine.geofenceAlerts":      "GEOALERT_GEOFENCE_ALERTS",
	"engine.scheduleAlerts":      "GEOALERT_SCHEDULE_ALERTS",
	"engine.leftBehindAlerts":    "GEOALERT_LEFT_BEHIND_ALERTS",
	"engine.leftBehindMeters":    "GEOALERT_LEFT_BEHIND_METERS",
	"simulation.tickInterval":    "GEOALERT_SIMULATION_TICK",
	"cache.enabled":              "GEOALERT_CACHE_ENABLED",
	"cache.size":                 "GEOALERT_CACHE_SIZE",
	"metrics.enabled":            "GEOALERT_METRICS_ENABLED",
	"webServer.rateLimit":        "GEOALERT_RATE_LIMIT",
	"engine.suppressionWindow":   "GEOALERT_SUPPRESSION_WINDOW",
	"engine.toleranceMinutes":    "GEOALERT_TOLERANCE_MINUTES",
	"engine.dedupWindow":         "GEOALERT_DEDUP_WINDOW",
	"engine.dedupDistanceMeters": "GEOALERT_DEDUP_DISTANCE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("webServer.host", "0.0.0.0")
	v.SetDefault("webServer.port", 8090)
	v.SetDefault("webServer.rateBurst", 50)
	v.SetDefault("persistence.saveInterval", 30*time.Second)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("storage.driver", "memory")

	v.SetDefault("engine.pollInterval", 30*time.Second)
	v.SetDefault("engine.timezone", "UTC")
	v.SetDefault("engine.toleranceMinutes", 1)
	v.SetDefault("engine.suppressionWindow", time.Hour)
	v.SetDefault("engine.dedupWindow", 5*time.Second)
	v.SetDefault("engine.dedupDistanceMeters", 1.0)
	v.SetDefault("engine.geofenceAlerts", true)
	v.SetDefault("engine.scheduleAlerts", true)
	v.SetDefault("engine.leftBehindAlerts", true)
	// 0.001 degrees of latitude
	v.SetDefault("engine.leftBehindMeters", 111.19)

	v.SetDefault("simulation.tickInterval", 3*time.Second)
	v.SetDefault("simulation.radius", 0.001)
	v.SetDefault("simulation.speed", 0.00005)
	v.SetDefault("simulation.jitter", 0.2)
	v.SetDefault("simulation.maxDistance", 0.01)
	v.SetDefault("simulation.crossStepMeters", 25.0)
	v.SetDefault("simulation.maxRunning", 100)

	v.SetDefault("cache.ttl", 2*time.Second)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	envFile := filepath.Join(filepath.Dir(flags.ConfigPath), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "GeoAlertEngine"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}

// Location resolves engine.timezone. An empty or unknown zone means UTC;
// the validator rejects unknown zones before this is reached.
func Location(conf *structures.Config) *time.Location {
	if conf.Engine.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(conf.Engine.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
