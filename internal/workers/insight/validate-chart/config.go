package validatechart

import (
	"encoding/json"
	"time"
)

type Config struct {
	Timeout     time.Duration
	InputSchema json.RawMessage
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
