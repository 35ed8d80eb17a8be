package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/yatra_sevak/backend/internal/calendar"
	"github.com/yatra_sevak/backend/internal/forecast"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	AdminKey       string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	RedisURL     string `mapstructure:"REDIS_URL"`
	RedisChannel string `mapstructure:"REDIS_CHANNEL"`
	MQTTURL      string `mapstructure:"MQTT_URL"`
	MQTTTopic    string `mapstructure:"MQTT_TOPIC"`
	GeocoderURL  string `mapstructure:"GEOCODER_URL"`

	DemoDate     string `mapstructure:"DEMO_DATE"`
	HistoryStart string `mapstructure:"HISTORY_START"`
	HistoryEnd   string `mapstructure:"HISTORY_END"`
	HistorySeed  int64  `mapstructure:"HISTORY_SEED"`

	FestivalMult float64 `mapstructure:"FESTIVAL_MULT"`
	HolidayMult  float64 `mapstructure:"HOLIDAY_MULT"`
	WeatherMult  float64 `mapstructure:"WEATHER_MULT"`
	NoiseFrac    float64 `mapstructure:"NOISE_FRAC"`
	MaxMult      float64 `mapstructure:"MAX_MULT"`

	ForestTrees    int     `mapstructure:"FOREST_TREES"`
	ForestMaxDepth int     `mapstructure:"FOREST_MAX_DEPTH"`
	ForestMinLeaf  int     `mapstructure:"FOREST_MIN_LEAF"`
	HoldoutFrac    float64 `mapstructure:"HOLDOUT_FRAC"`

	SurgeMult        float64 `mapstructure:"SURGE_MULT"`
	SurgeHorizonDays int     `mapstructure:"SURGE_HORIZON_DAYS"`
	SensorSeed       int64   `mapstructure:"SENSOR_SEED"`
	StreamCapacity   int     `mapstructure:"STREAM_CAPACITY"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ADMIN_KEY", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("REQUEST_TIMEOUT", "30s")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_CHANNEL", "yatra:live")
	v.SetDefault("MQTT_URL", "")
	v.SetDefault("MQTT_TOPIC", "yatra/density/+")
	v.SetDefault("GEOCODER_URL", "")

	v.SetDefault("DEMO_DATE", "")
	v.SetDefault("HISTORY_START", "2023-01-01")
	v.SetDefault("HISTORY_END", "2025-12-31")
	v.SetDefault("HISTORY_SEED", 42)

	v.SetDefault("FESTIVAL_MULT", 1.5)
	v.SetDefault("HOLIDAY_MULT", 0.25)
	v.SetDefault("WEATHER_MULT", 0.12)
	v.SetDefault("NOISE_FRAC", 0.12)
	v.SetDefault("MAX_MULT", 4.0)

	v.SetDefault("FOREST_TREES", 120)
	v.SetDefault("FOREST_MAX_DEPTH", 12)
	v.SetDefault("FOREST_MIN_LEAF", 3)
	v.SetDefault("HOLDOUT_FRAC", 0.15)

	v.SetDefault("SURGE_MULT", 2.0)
	v.SetDefault("SURGE_HORIZON_DAYS", 7)
	v.SetDefault("SENSOR_SEED", 7)
	v.SetDefault("STREAM_CAPACITY", 200)
}

var ErrInvalidConfig = errors.New("invalid config")

func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	start, err := calendar.ParseDate(c.HistoryStart)
	check(err == nil, "HISTORY_START %q", c.HistoryStart)
	end, err := calendar.ParseDate(c.HistoryEnd)
	check(err == nil, "HISTORY_END %q", c.HistoryEnd)
	check(!end.Before(start), "HISTORY_END before HISTORY_START")
	if c.DemoDate != "" {
		_, err := calendar.ParseDate(c.DemoDate)
		check(err == nil, "DEMO_DATE %q", c.DemoDate)
	}

	check(c.FestivalMult > 0, "FESTIVAL_MULT must be positive")
	check(c.HolidayMult >= 0, "HOLIDAY_MULT must not be negative")
	check(c.WeatherMult >= 0, "WEATHER_MULT must not be negative")
	check(c.NoiseFrac >= 0 && c.NoiseFrac < 1, "NOISE_FRAC must be in [0,1)")
	check(c.MaxMult >= 1, "MAX_MULT must be at least 1")

	check(c.ForestTrees > 0, "FOREST_TREES must be positive")
	check(c.ForestMaxDepth > 0, "FOREST_MAX_DEPTH must be positive")
	check(c.ForestMinLeaf > 0, "FOREST_MIN_LEAF must be positive")
	check(c.HoldoutFrac >= 0 && c.HoldoutFrac < 0.5, "HOLDOUT_FRAC must be in [0,0.5)")

	check(c.SurgeMult > 0, "SURGE_MULT must be positive")
	check(c.SurgeHorizonDays > 0, "SURGE_HORIZON_DAYS must be positive")
	check(c.StreamCapacity > 0, "STREAM_CAPACITY must be positive")
	check(c.RequestTimeout > 0, "REQUEST_TIMEOUT must be positive")

	return errors.Join(errs...)
}

// Forecast builds the forecasting configuration. Validate must have passed.
func (c Config) Forecast() forecast.Config {
	fc := forecast.DefaultConfig()
	fc.HistoryStart, _ = calendar.ParseDate(c.HistoryStart)
	fc.HistoryEnd, _ = calendar.ParseDate(c.HistoryEnd)
	fc.HistorySeed = c.HistorySeed
	fc.History.FestivalMult = c.FestivalMult
	fc.History.HolidayMult = c.HolidayMult
	fc.History.WeatherMult = c.WeatherMult
	fc.History.NoiseFrac = c.NoiseFrac
	fc.History.MaxMult = c.MaxMult
	fc.Forest.Trees = c.ForestTrees
	fc.Forest.MaxDepth = c.ForestMaxDepth
	fc.Forest.MinLeaf = c.ForestMinLeaf
	fc.Forest.HoldoutFrac = c.HoldoutFrac
	fc.Forest.Seed = c.HistorySeed
	return fc
}
