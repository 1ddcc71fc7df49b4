package structures

import "time"

type Server struct {
	Host      string  `yaml:"host" validate:"required"`
	Port      int     `yaml:"port" validate:"required|uint|min:1"`
	RateLimit float64 `yaml:"rateLimit"`
	RateBurst int     `yaml:"rateBurst"`
}

type Persistence struct {
	FilePath     string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type StorageConfig struct {
	Driver     string `yaml:"driver" validate:"required|in:memory,sqlite"`
	SQLitePath string `yaml:"sqlitePath"`
}

// EngineConfig carries the alert engine's tolerances. The defaults are the
// historical constants: one minute of schedule slack, one hour of
// re-fire suppression and a 5 s / 1 m sample dedup window.
type EngineConfig struct {
	PollInterval        time.Duration `yaml:"pollInterval" validate:"required|min:1"`
	Timezone            string        `yaml:"timezone"`
	ToleranceMinutes    int           `yaml:"toleranceMinutes" validate:"min:0"`
	SuppressionWindow   time.Duration `yaml:"suppressionWindow"`
	DedupWindow         time.Duration `yaml:"dedupWindow"`
	DedupDistanceMeters float64       `yaml:"dedupDistanceMeters"`
	GeofenceAlerts      bool          `yaml:"geofenceAlerts"`
	ScheduleAlerts      bool          `yaml:"scheduleAlerts"`
	LeftBehindAlerts    bool          `yaml:"leftBehindAlerts"`
	LeftBehindMeters    float64       `yaml:"leftBehindMeters" validate:"min:0"`
}

type SimulationConfig struct {
	TickInterval    time.Duration `yaml:"tickInterval"`
	Radius          float64       `yaml:"radius"`
	Speed           float64       `yaml:"speed"`
	Jitter          float64       `yaml:"jitter"`
	MaxDistance     float64       `yaml:"maxDistance"`
	CrossStepMeters float64       `yaml:"crossStepMeters"`
	MaxRunning      int           `yaml:"maxRunning"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server           `yaml:"webServer"`
	Persistence Persistence      `yaml:"persistence"`
	Logger      LoggerConfig     `yaml:"logger"`
	Storage     StorageConfig    `yaml:"storage"`
	Engine      EngineConfig     `yaml:"engine"`
	Simulation  SimulationConfig `yaml:"simulation"`
	Cache       CacheConfig      `yaml:"cache"`
	Metrics     MetricsConfig    `yaml:"metrics"`
}
