package providers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gookit/validate"

	"geoalert/internal/structures"
)

// MaxPollInterval keeps a ±1 minute schedule window from being skipped
// between two polls.
const MaxPollInterval = 60 * time.Second

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (c *CnfValidator) Validate() error {
	v := validate.Struct(c.conf)
	if !v.Validate() {
		return v.Errors
	}

	if c.conf.Engine.PollInterval > MaxPollInterval {
		return fmt.Errorf("engine.pollInterval %s exceeds %s", c.conf.Engine.PollInterval, MaxPollInterval)
	}
	if c.conf.Storage.Driver == "sqlite" && c.conf.Storage.SQLitePath == "" {
		return errors.New("storage.sqlitePath is required for the sqlite driver")
	}
	if c.conf.Engine.Timezone != "" {
		if _, err := time.LoadLocation(c.conf.Engine.Timezone); err != nil {
			return fmt.Errorf("engine.timezone: %w", err)
		}
	}
	if c.conf.WebServer.RateLimit < 0 {
		return errors.New("webServer.rateLimit must not be negative")
	}
	return nil
}
