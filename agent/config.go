package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/0x6flab/namegenerator"
)

const (
	defRegisterAttempts = 10
	defRegisterDelay    = 5 * time.Second
	defWarmUp           = 10 * time.Second
	defEntryPoll        = 5 * time.Second
	defExitPoll         = 3 * time.Second
	defExitTimeout      = 300 * time.Second
	defSettleDelay      = 5 * time.Second
	defPresencePeriod   = 10 * time.Second
	defLocalEpochs      = 1
	defBatchSize        = 32
)

var namegen = namegenerator.NewGenerator()

type Config struct {
	ClientID       string `json:"client_id"`
	CoordinatorURL string `json:"coordinator_url"`
	DataDir        string `json:"data_dir"`
	LocalEpochs    int    `json:"local_epochs"`
	BatchSize      int    `json:"batch_size"`
	BrokerURL      string `json:"broker_url"`
	LogLevel       string `json:"log_level"`

	// Loop tuning; zero values fall back to the defaults above. The warm-up
	// is a grace period only, the entry barrier is authoritative.
	RegisterAttempts int           `json:"register_attempts,omitempty"`
	RegisterDelay    time.Duration `json:"-"`
	WarmUp           time.Duration `json:"-"`
	EntryPoll        time.Duration `json:"-"`
	ExitPoll         time.Duration `json:"-"`
	ExitTimeout      time.Duration `json:"-"`
	SettleDelay      time.Duration `json:"-"`
	PresencePeriod   time.Duration `json:"-"`
}

func LoadConfig(filepath string) (Config, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to open configuration file '%s': %w", filepath, err)
	}
	defer file.Close()

	var config Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration file '%s': %w", filepath, err)
	}

	config.setDefaults()
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) setDefaults() {
	if c.ClientID == "" {
		c.ClientID = namegen.Generate()
	}
	if c.LocalEpochs < 1 {
		c.LocalEpochs = defLocalEpochs
	}
	if c.BatchSize < 1 {
		c.BatchSize = defBatchSize
	}
	if c.RegisterAttempts < 1 {
		c.RegisterAttempts = defRegisterAttempts
	}
	if c.RegisterDelay <= 0 {
		c.RegisterDelay = defRegisterDelay
	}
	if c.WarmUp < 0 {
		c.WarmUp = 0
	} else if c.WarmUp == 0 {
		c.WarmUp = defWarmUp
	}
	if c.EntryPoll <= 0 {
		c.EntryPoll = defEntryPoll
	}
	if c.ExitPoll <= 0 {
		c.ExitPoll = defExitPoll
	}
	if c.ExitTimeout <= 0 {
		c.ExitTimeout = defExitTimeout
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = defSettleDelay
	}
	if c.PresencePeriod <= 0 {
		c.PresencePeriod = defPresencePeriod
	}
}

func (c Config) Validate() error {
	if c.CoordinatorURL == "" {
		return errors.New("coordinator_url is required")
	}
	if _, err := url.Parse(c.CoordinatorURL); err != nil {
		return fmt.Errorf("coordinator_url is not a valid URL: %w", err)
	}
	if c.BrokerURL != "" {
		if _, err := url.Parse(c.BrokerURL); err != nil {
			return fmt.Errorf("broker_url is not a valid URL: %w", err)
		}
	}

	return nil
}
