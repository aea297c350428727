package config

import (
	"time"

	"platemap_metadata/internal/retry"
)

// ResilienceConfig groups the retry policies for the remote calls a run makes.
type ResilienceConfig struct {
	WorkbookFetch retry.Config
	SheetExport   retry.Config
	Notification  retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	WorkbookFetch: retry.Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    60 * time.Second,
	},
	SheetExport: retry.Config{
		MaxRetries: 5,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    30 * time.Second,
	},
	Notification: retry.Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Timeout:    10 * time.Second,
	},
}
