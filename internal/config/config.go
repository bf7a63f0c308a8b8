package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env               string        `mapstructure:"ENV"`
	Port              string        `mapstructure:"PORT"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	AdminKey          string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed       string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	PowerStoreURL     string        `mapstructure:"POWERSTORE_URL"`
	PowerStoreToken   string        `mapstructure:"POWERSTORE_TOKEN"`
	PowerStoreTimeout time.Duration `mapstructure:"POWERSTORE_TIMEOUT"`
	DumpTrackPath     string        `mapstructure:"DUMPTRACK_PATH"`
	MonitorPath       string        `mapstructure:"MONITOR_PATH"`
	ImportSchedule    string        `mapstructure:"IMPORT_SCHEDULE"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("POWERSTORE_TIMEOUT", "30s")
	v.SetDefault("DUMPTRACK_PATH", "/data/dumptrack")
	v.SetDefault("MONITOR_PATH", "/data/monitor")
	// Daily feed import, matching the warehouse file drop at 05:00.
	v.SetDefault("IMPORT_SCHEDULE", "0 5 * * *")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
