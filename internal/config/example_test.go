package config_test

import (
	"fmt"
	"time"

	"github.com/chatsentry/chatsentry/internal/config"
)

// Example of creating a default configuration
func ExampleDefault() {
	cfg := config.Default()
	fmt.Println("Poll Interval:", cfg.App.PollingInterval)
	fmt.Println("Debounce:", cfg.Thresholds.DebounceInterval)
	fmt.Println("Change Threshold:", cfg.Thresholds.ChangeDetection)
	// Output:
	// Poll Interval: 2s
	// Debounce: 10s
	// Change Threshold: 500
}

// Example of setting poll interval with validation
func ExampleConfig_SetPollInterval() {
	cfg := config.Default()

	if err := cfg.SetPollInterval(5 * time.Second); err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Println("Poll interval set to:", cfg.App.PollingInterval)
	}

	if err := cfg.SetPollInterval(10 * time.Millisecond); err != nil {
		fmt.Println("Error:", err)
	}

	// Output:
	// Poll interval set to: 5s
	// Error: poll interval cannot be less than 100ms
}

// Example of validating configuration
func ExampleConfig_Validate() {
	cfg := config.Default()

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid config:", err)
	} else {
		fmt.Println("Configuration is valid")
	}

	// Output:
	// Configuration is valid
}
