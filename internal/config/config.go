package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/ferrylink/service-fleet/internal/platform/database"
)

// ServiceConfig holds all configuration for the fleet service.
type ServiceConfig struct {
	Port            string `validate:"required"`
	AppEnv          string `validate:"oneof=development staging production test"`
	PortCatalogPath string `validate:"required"`
	MigrationsDir   string

	DBConfig    database.PostgresConfig
	JWTConfig   JWTConfig
	KafkaConfig KafkaConfig
	MQTTConfig  MQTTConfig
	MapConfig   MapConfig
	Refresh     RefreshConfig
}

// JWTConfig configures token validation for operator and admin routes.
type JWTConfig struct {
	Secret     string        `validate:"required"`
	AccessTTL  time.Duration `validate:"gt=0"`
	RefreshTTL time.Duration `validate:"gt=0"`
}

// KafkaConfig configures the event producer and consumer.
type KafkaConfig struct {
	Brokers     []string `validate:"min=1,dive,required"`
	GroupPrefix string
}

// MQTTConfig configures the optional MQTT position feed.
type MQTTConfig struct {
	Enabled  bool
	Broker   string `validate:"required_if=Enabled true"`
	ClientID string
	Topic    string `validate:"required_if=Enabled true"`
}

// MapConfig is the rendering defaults handed to map clients. It is passed
// explicitly to the handlers that need it rather than held globally.
type MapConfig struct {
	CenterLat    float64       `json:"center_lat" validate:"gte=-90,lte=90"`
	CenterLng    float64       `json:"center_lng" validate:"gte=-180,lte=180"`
	Zoom         int           `json:"zoom" validate:"gte=1,lte=20"`
	TickInterval time.Duration `json:"-" validate:"gt=0"`
}

// RefreshConfig controls how the active-sailing list is re-fetched.
type RefreshConfig struct {
	Interval  time.Duration `validate:"gt=0"`
	Lookback  time.Duration `validate:"gte=0"`
	Lookahead time.Duration `validate:"gte=0"`
}

// Load reads configuration from FLEET_* environment variables and an optional
// config.yaml in the working directory or /etc/service-fleet.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("FLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/service-fleet")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *ServiceConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.port", ":8084")
	v.SetDefault("app.env", "development")
	v.SetDefault("ports.catalog", "ports.yaml")
	v.SetDefault("migrations.dir", "migrations")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "fleet")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)

	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.group_prefix", "ferrylink-")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "service-fleet")
	v.SetDefault("mqtt.topic", "ferries/positions")

	v.SetDefault("map.center_lat", 38.0)
	v.SetDefault("map.center_lng", 9.0)
	v.SetDefault("map.zoom", 6)
	v.SetDefault("map.tick", time.Second)

	v.SetDefault("refresh.interval", 30*time.Second)
	v.SetDefault("refresh.lookback", 24*time.Hour)
	v.SetDefault("refresh.lookahead", 2*time.Hour)
}

func fromViper(v *viper.Viper) *ServiceConfig {
	port := v.GetString("service.port")
	if port != "" && !strings.Contains(port, ":") {
		port = ":" + port
	}

	return &ServiceConfig{
		Port:            port,
		AppEnv:          v.GetString("app.env"),
		PortCatalogPath: v.GetString("ports.catalog"),
		MigrationsDir:   v.GetString("migrations.dir"),
		DBConfig: database.PostgresConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			DBName:   v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
		},
		JWTConfig: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			AccessTTL:  v.GetDuration("jwt.access_ttl"),
			RefreshTTL: v.GetDuration("jwt.refresh_ttl"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("kafka.brokers")),
			GroupPrefix: v.GetString("kafka.group_prefix"),
		},
		MQTTConfig: MQTTConfig{
			Enabled:  v.GetBool("mqtt.enabled"),
			Broker:   v.GetString("mqtt.broker"),
			ClientID: v.GetString("mqtt.client_id"),
			Topic:    v.GetString("mqtt.topic"),
		},
		MapConfig: MapConfig{
			CenterLat:    v.GetFloat64("map.center_lat"),
			CenterLng:    v.GetFloat64("map.center_lng"),
			Zoom:         v.GetInt("map.zoom"),
			TickInterval: v.GetDuration("map.tick"),
		},
		Refresh: RefreshConfig{
			Interval:  v.GetDuration("refresh.interval"),
			Lookback:  v.GetDuration("refresh.lookback"),
			Lookahead: v.GetDuration("refresh.lookahead"),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
