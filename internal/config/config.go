package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Game        GameConfig        `mapstructure:"game"`
	Server      ServerConfig      `mapstructure:"server"`
	Experience  ExperienceConfig  `mapstructure:"experience"`
	UI          UIConfig          `mapstructure:"ui"`
	Colors      ColorsConfig      `mapstructure:"colors"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Development DevelopmentConfig `mapstructure:"development"`
}

// GameConfig holds grid settings for new engines
type GameConfig struct {
	Rows    int   `mapstructure:"rows"`
	Columns int   `mapstructure:"columns"`
	Seed    int64 `mapstructure:"seed"` // negative means seed from the clock
}

// SeedValue returns the configured seed, or nil when it should come from the clock
func (g GameConfig) SeedValue() *uint64 {
	if g.Seed < 0 {
		return nil
	}
	s := uint64(g.Seed)
	return &s
}

// ServerConfig holds server configuration
type ServerConfig struct {
	GRPCServer GRPCServerConfig `mapstructure:"grpc_server"`
}

// GRPCServerConfig holds gRPC server configuration
type GRPCServerConfig struct {
	Host                  string `mapstructure:"host"`
	Port                  int    `mapstructure:"port"`
	LogLevel              string `mapstructure:"log_level"`
	MaxEnvs               int    `mapstructure:"max_envs"`
	MaxGridCells          int    `mapstructure:"max_grid_cells"` // rows*columns limit per env
	IdleTimeout           int    `mapstructure:"idle_timeout"`     // seconds
	CleanupInterval       int    `mapstructure:"cleanup_interval"` // seconds
	IdempotencyCacheSize  int    `mapstructure:"idempotency_cache_size"`
	EnableReflection      bool   `mapstructure:"enable_reflection"`
	GracefulShutdownDelay int    `mapstructure:"graceful_shutdown_delay"`
}

// ExperienceConfig holds experience collection settings
type ExperienceConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BufferCapacity int    `mapstructure:"buffer_capacity"`
	DumpPath       string `mapstructure:"dump_path"`
}

// UIConfig holds window settings for the human render mode
type UIConfig struct {
	Window WindowConfig `mapstructure:"window"`
	Game   UIGameConfig `mapstructure:"game"`
}

// WindowConfig holds window settings
type WindowConfig struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Title  string `mapstructure:"title"`
}

// UIGameConfig holds UI game settings
type UIGameConfig struct {
	TileSize     int `mapstructure:"tile_size"`
	StepInterval int `mapstructure:"step_interval"` // frames between automatic steps
}

// ColorsConfig holds display colors per cell category
type ColorsConfig struct {
	Empty      [3]int `mapstructure:"empty"`
	Filled     [3]int `mapstructure:"filled"`
	Current    [3]int `mapstructure:"current"`
	Legal      [3]int `mapstructure:"legal"`
	Background [3]int `mapstructure:"background"`
	GridLines  [3]int `mapstructure:"grid_lines"`
	Text       [3]int `mapstructure:"text"`
}

// LoggingConfig holds logger settings for the binaries
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// DevelopmentConfig holds development settings
type DevelopmentConfig struct {
	VerboseLogging  bool `mapstructure:"verbose_logging"`
	ShowCoordinates bool `mapstructure:"show_coordinates"`
}

var (
	// Global config instance
	cfg *Config
	v   *viper.Viper
)

// setViperDefaults sets all default values using Viper's SetDefault
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("game.rows", 10)
	v.SetDefault("game.columns", 10)
	v.SetDefault("game.seed", -1)

	// gRPC server defaults
	v.SetDefault("server.grpc_server.host", "0.0.0.0")
	v.SetDefault("server.grpc_server.port", 50051)
	v.SetDefault("server.grpc_server.log_level", "info")
	v.SetDefault("server.grpc_server.max_envs", 100)
	v.SetDefault("server.grpc_server.max_grid_cells", 1000000)
	v.SetDefault("server.grpc_server.idle_timeout", 1800)
	v.SetDefault("server.grpc_server.cleanup_interval", 60)
	v.SetDefault("server.grpc_server.idempotency_cache_size", 256)
	v.SetDefault("server.grpc_server.enable_reflection", true)
	v.SetDefault("server.grpc_server.graceful_shutdown_delay", 5)

	v.SetDefault("experience.enabled", false)
	v.SetDefault("experience.buffer_capacity", 10000)
	v.SetDefault("experience.dump_path", "")

	// UI defaults
	v.SetDefault("ui.window.width", 600)
	v.SetDefault("ui.window.height", 600)
	v.SetDefault("ui.window.title", "NumGrid")
	v.SetDefault("ui.game.tile_size", 60)
	v.SetDefault("ui.game.step_interval", 30)

	// Color defaults
	v.SetDefault("colors.empty", []int{255, 255, 255})
	v.SetDefault("colors.filled", []int{255, 255, 51})
	v.SetDefault("colors.current", []int{255, 191, 51})
	v.SetDefault("colors.legal", []int{127, 255, 255})
	v.SetDefault("colors.background", []int{0, 0, 0})
	v.SetDefault("colors.grid_lines", []int{50, 50, 50})
	v.SetDefault("colors.text", []int{0, 0, 0})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Development defaults
	v.SetDefault("development.verbose_logging", false)
	v.SetDefault("development.show_coordinates", false)
}

// Init initializes the configuration
func Init(configPath string) error {
	v = viper.New()

	// Set defaults before loading any config
	setViperDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/numgrid")
	}

	// NGG_GAME_ROWS overrides game.rows
	v.SetEnvPrefix("NGG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			// no config file in the default locations; use defaults
		case configPath != "" && errors.Is(err, os.ErrNotExist):
			// requested file missing; use defaults
		default:
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	next := &Config{}
	if err := v.Unmarshal(next); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := Validate(next); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	cfg = next
	return nil
}

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		// Initialize with defaults if not already initialized
		if err := Init(""); err != nil {
			panic("failed to initialize config with defaults: " + err.Error())
		}
	}
	return cfg
}

// LoadEnvironmentConfig merges config.<env>.yaml from the directory of the
// loaded config file (or the working directory). A missing overlay is ignored.
func LoadEnvironmentConfig(env string) error {
	if env == "" {
		return nil
	}

	envFile := fmt.Sprintf("config.%s.yaml", env)
	if used := v.ConfigFileUsed(); used != "" {
		envFile = filepath.Join(filepath.Dir(used), envFile)
	}
	if _, err := os.Stat(envFile); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	v.SetConfigFile(envFile)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("error merging environment config %s: %w", envFile, err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode merged config into struct: %w", err)
	}

	return Validate(cfg)
}

// Set allows runtime config updates
func Set(key string, value interface{}) {
	v.Set(key, value)
	_ = v.Unmarshal(cfg)
}

// GetString gets a string value from config
func GetString(key string) string {
	return v.GetString(key)
}

// GetInt gets an int value from config
func GetInt(key string) int {
	return v.GetInt(key)
}

// GetBool gets a bool value from config
func GetBool(key string) bool {
	return v.GetBool(key)
}

// ConfigFilePath returns the path of the loaded config file
func ConfigFilePath() string {
	return v.ConfigFileUsed()
}

// WatchConfig enables hot-reloading of config file. A reloaded config that
// fails validation is reported through onError and the previous values stay.
func WatchConfig(onChange func(*Config), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		next := &Config{}
		err := v.Unmarshal(next)
		if err == nil {
			err = Validate(next)
		}
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		cfg = next
		if onChange != nil {
			onChange(next)
		}
	})
	v.WatchConfig()
}

// Validate validates the configuration values
func Validate(c *Config) error {
	if c.Game.Rows <= 0 || c.Game.Columns <= 0 {
		return fmt.Errorf("game dimensions must be positive, got %dx%d", c.Game.Rows, c.Game.Columns)
	}

	// Validate server configuration
	if c.Server.GRPCServer.Port <= 0 || c.Server.GRPCServer.Port > 65535 {
		return fmt.Errorf("server.grpc_server.port must be between 1 and 65535")
	}
	if c.Server.GRPCServer.MaxEnvs <= 0 {
		return fmt.Errorf("server.grpc_server.max_envs must be positive")
	}
	if c.Server.GRPCServer.MaxGridCells <= 0 {
		return fmt.Errorf("server.grpc_server.max_grid_cells must be positive")
	}
	if cells := int64(c.Game.Rows) * int64(c.Game.Columns); cells > int64(c.Server.GRPCServer.MaxGridCells) {
		return fmt.Errorf("game dimensions %dx%d exceed server.grpc_server.max_grid_cells (%d)",
			c.Game.Rows, c.Game.Columns, c.Server.GRPCServer.MaxGridCells)
	}
	if c.Server.GRPCServer.IdleTimeout < 0 {
		return fmt.Errorf("server.grpc_server.idle_timeout must be non-negative")
	}
	if c.Server.GRPCServer.CleanupInterval <= 0 {
		return fmt.Errorf("server.grpc_server.cleanup_interval must be positive")
	}
	if c.Server.GRPCServer.IdempotencyCacheSize < 0 {
		return fmt.Errorf("server.grpc_server.idempotency_cache_size must be non-negative")
	}
	if c.Server.GRPCServer.GracefulShutdownDelay < 0 {
		return fmt.Errorf("server.grpc_server.graceful_shutdown_delay must be non-negative")
	}

	if c.Experience.BufferCapacity <= 0 {
		return fmt.Errorf("experience.buffer_capacity must be positive")
	}

	// Validate UI configuration
	if c.UI.Window.Width <= 0 || c.UI.Window.Height <= 0 {
		return fmt.Errorf("ui.window dimensions must be positive")
	}
	if c.UI.Game.TileSize <= 0 {
		return fmt.Errorf("ui.game.tile_size must be positive")
	}
	if c.UI.Game.StepInterval <= 0 {
		return fmt.Errorf("ui.game.step_interval must be positive")
	}

	// Validate color values
	colors := []struct {
		name string
		rgb  [3]int
	}{
		{"colors.empty", c.Colors.Empty},
		{"colors.filled", c.Colors.Filled},
		{"colors.current", c.Colors.Current},
		{"colors.legal", c.Colors.Legal},
		{"colors.background", c.Colors.Background},
		{"colors.grid_lines", c.Colors.GridLines},
		{"colors.text", c.Colors.Text},
	}
	for _, col := range colors {
		for i, val := range col.rgb {
			if val < 0 || val > 255 {
				return fmt.Errorf("%s[%d] must be between 0 and 255", col.name, i)
			}
		}
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}

	return nil
}
