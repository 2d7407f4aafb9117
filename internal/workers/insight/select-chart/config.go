package selectchart

import (
	"encoding/json"
	"time"
)

type Config struct {
	Timeout time.Duration
	// InputSchema is the activity's inputSchema from the registry. Empty
	// disables schema validation.
	InputSchema json.RawMessage
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
