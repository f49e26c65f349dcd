package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration
type Config struct {
	// Monitored windows and polling
	App AppConfig `yaml:"app"`

	// Change detection tuning
	Thresholds ThresholdConfig `yaml:"thresholds"`

	// Monitored chat-box geometry inside the main window
	ChatBox ChatBoxConfig `yaml:"chat_box"`

	// Click sequencing for the details window
	Automation AutomationConfig `yaml:"automation"`

	// Remote judgment model
	AI AIConfig `yaml:"ai"`

	// Text extraction
	OCR OCRConfig `yaml:"ocr"`

	// Notification sound
	Alert AlertConfig `yaml:"alert"`

	// Filesystem locations for artifacts
	Paths PathsConfig `yaml:"paths"`

	Log LogConfig `yaml:"log"`

	Daemon DaemonConfig `yaml:"daemon"`

	Web WebConfig `yaml:"web"`
}

// AppConfig holds window titles and the poll interval
type AppConfig struct {
	WindowTitle        string        `yaml:"window_title" validate:"required"`
	DetailsWindowTitle string        `yaml:"details_window_title" validate:"required"`
	PollingInterval    time.Duration `yaml:"polling_interval" validate:"gte=100ms"`
}

// ThresholdConfig holds pixel-diff and debounce settings
type ThresholdConfig struct {
	ChangeDetection  int           `yaml:"change_detection" validate:"gte=0"`
	PixelTolerance   uint8         `yaml:"pixel_tolerance"`
	DebounceInterval time.Duration `yaml:"debounce_interval" validate:"gte=0"`
}

// ChatBoxConfig describes the monitored region. YOffset is measured from the
// bottom edge of the main window and is normally negative.
type ChatBoxConfig struct {
	X       int `yaml:"x" validate:"gte=0"`
	YOffset int `yaml:"y_offset"`
	Width   int `yaml:"width" validate:"gt=0"`
	Height  int `yaml:"height" validate:"gt=0"`
}

// AutomationConfig holds click offsets and settle delays
type AutomationConfig struct {
	SettleDelay           time.Duration `yaml:"settle_delay" validate:"gte=0"`
	CloseOffsetX          int           `yaml:"close_offset_x" validate:"gte=0"`
	CloseOffsetY          int           `yaml:"close_offset_y" validate:"gte=0"`
	BlankOffsetFromBottom int           `yaml:"blank_offset_from_bottom" validate:"gte=0"`
}

// AIConfig holds the OpenAI-compatible endpoint settings
type AIConfig struct {
	BaseURL     string        `yaml:"base_url" validate:"required,url"`
	APIKeyEnv   string        `yaml:"api_key_env" validate:"required"`
	TextModel   string        `yaml:"text_model" validate:"required"`
	VisionModel string        `yaml:"vision_model" validate:"required"`
	Prompt      string        `yaml:"prompt" validate:"required"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// OCRConfig holds text extraction settings
type OCRConfig struct {
	Command           string  `yaml:"command" validate:"required"`
	Language          string  `yaml:"language" validate:"required"`
	Scale             float64 `yaml:"scale" validate:"gte=1,lte=4"`
	BinarizeThreshold uint8   `yaml:"binarize_threshold"`
}

// AlertConfig holds notification settings
type AlertConfig struct {
	Enabled   bool   `yaml:"enabled"`
	SoundFile string `yaml:"sound_file" validate:"required_if=Enabled true"`
	Command   string `yaml:"command"` // empty means autodetect
}

// PathsConfig holds output locations
type PathsConfig struct {
	Screenshots string `yaml:"screenshots" validate:"required"`
	Judgments   string `yaml:"judgments" validate:"required"`
	OCRResults  string `yaml:"ocr_results" validate:"required"`
	Database    string `yaml:"database"` // empty means ~/.config/chatsentry/chatsentry.db
}

// LogConfig holds logger settings
type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	File       string `yaml:"file"` // empty disables file output
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	Console    bool   `yaml:"console"`
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `yaml:"pid_file" validate:"required"`
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"gte=1,lte=65535"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		App: AppConfig{
			WindowTitle:        "WeChat",
			DetailsWindowTitle: "Chat Details",
			PollingInterval:    2 * time.Second,
		},
		Thresholds: ThresholdConfig{
			ChangeDetection:  500,
			PixelTolerance:   0,
			DebounceInterval: 10 * time.Second,
		},
		ChatBox: ChatBoxConfig{
			X:       80,
			YOffset: -160,
			Width:   400,
			Height:  60,
		},
		Automation: AutomationConfig{
			SettleDelay:           500 * time.Millisecond,
			CloseOffsetX:          20,
			CloseOffsetY:          20,
			BlankOffsetFromBottom: 300,
		},
		AI: AIConfig{
			BaseURL:     "https://dashscope.aliyuncs.com/compatible-mode/v1",
			APIKeyEnv:   "DASHSCOPE_API_KEY",
			TextModel:   "qwen-turbo-latest",
			VisionModel: "qwen-vl-max-latest",
			Prompt:      "Does this message ask for help that Python would solve? Answer yes or no.",
			Timeout:     30 * time.Second,
		},
		OCR: OCRConfig{
			Command:           "tesseract",
			Language:          "chi_sim+eng",
			Scale:             2,
			BinarizeThreshold: 180,
		},
		Alert: AlertConfig{
			Enabled:   true,
			SoundFile: "alert.wav",
		},
		Paths: PathsConfig{
			Screenshots: "screenshots",
			Judgments:   "judgments",
			OCRResults:  "ocr_results",
		},
		Log: LogConfig{
			Level:      "info",
			File:       "logs/app.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
			Console:    true,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/chatsentry-%d.pid", os.Getuid()),
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid()%50000,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid config field %s: failed %q (value: %v)",
				first.Namespace(), first.Tag(), first.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.App.WindowTitle == c.App.DetailsWindowTitle {
		return fmt.Errorf("window title and details window title must differ")
	}

	return nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < 100*time.Millisecond {
		return fmt.Errorf("poll interval cannot be less than %v", 100*time.Millisecond)
	}
	c.App.PollingInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  App:
    Window: %q
    Details Window: %q
    Poll Interval: %v
  Thresholds:
    Change Detection: %d px
    Pixel Tolerance: %d
    Debounce: %v
  Chat Box:
    X: %d  Y Offset: %d  Size: %dx%d
  AI:
    Base URL: %s
    Text Model: %s
    Vision Model: %s
  Paths:
    Screenshots: %s
    Judgments: %s
    OCR Results: %s
    Database: %s
  Daemon:
    PID File: %s
  Web:
    Host: %s
    Port: %d`,
		c.App.WindowTitle,
		c.App.DetailsWindowTitle,
		c.App.PollingInterval,
		c.Thresholds.ChangeDetection,
		c.Thresholds.PixelTolerance,
		c.Thresholds.DebounceInterval,
		c.ChatBox.X, c.ChatBox.YOffset, c.ChatBox.Width, c.ChatBox.Height,
		c.AI.BaseURL,
		c.AI.TextModel,
		c.AI.VisionModel,
		c.Paths.Screenshots,
		c.Paths.Judgments,
		c.Paths.OCRResults,
		c.Paths.Database,
		c.Daemon.PIDFile,
		c.Web.Host,
		c.Web.Port,
	)
}
