package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the service configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	ServiceBus    ServiceBusConfig
	NewRelic      NewRelicConfig
	Scheduling    SchedulingConfig
	Notifications NotificationsConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port int
	Mode string // debug, release, test
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ServiceBusConfig holds the Azure Service Bus configuration
type ServiceBusConfig struct {
	ConnectionString string
	QueueName        string
}

// NewRelicConfig holds the New Relic configuration
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// SchedulingConfig bounds recurrence expansion and batch creation
type SchedulingConfig struct {
	OccurrenceLimit int
	MaxBatchSize    int
}

// NotificationsConfig controls retention of persisted notifications
type NotificationsConfig struct {
	RetentionDays   int
	CleanupSchedule string // cron expression
}

// InitConfig initializes the configuration using Viper
func InitConfig(cfgFile string) error {
	setDefaults()

	// Use config file from the flag if provided
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/calendar-service")
		viper.SetConfigName("config")
	}

	// Environment variable overrides, e.g. CALENDAR_SERVER_PORT for server.port
	viper.SetEnvPrefix("CALENDAR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("No config file found, using defaults and environment variables")
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8094)
	viper.SetDefault("server.mode", "debug")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "calendar")
	viper.SetDefault("database.password", "calendar")
	viper.SetDefault("database.dbname", "calendar_service_db")
	viper.SetDefault("database.sslmode", "disable")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Service Bus defaults - no default connection string for security
	viper.SetDefault("servicebus.queuename", "calendar-events")

	// New Relic defaults
	viper.SetDefault("newrelic.appname", "Calendar Service Local")
	viper.SetDefault("newrelic.enabled", false)

	// Scheduling defaults
	viper.SetDefault("scheduling.occurrencelimit", 100)
	viper.SetDefault("scheduling.maxbatchsize", 50)

	// Notification retention defaults: prune daily at 03:00
	viper.SetDefault("notifications.retentiondays", 30)
	viper.SetDefault("notifications.cleanupschedule", "0 3 * * *")
}

// Load loads the configuration
func Load() (*Config, error) {
	serverConfig := ServerConfig{
		Port: viper.GetInt("server.port"),
		Mode: viper.GetString("server.mode"),
	}

	dbConfig := DatabaseConfig{
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.dbname"),
		SSLMode:  viper.GetString("database.sslmode"),
	}

	redisConfig := RedisConfig{
		Host:     viper.GetString("redis.host"),
		Port:     viper.GetInt("redis.port"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	}

	serviceBusConfig := ServiceBusConfig{
		ConnectionString: viper.GetString("servicebus.connectionstring"),
		QueueName:        viper.GetString("servicebus.queuename"),
	}

	newRelicConfig := NewRelicConfig{
		AppName:    viper.GetString("newrelic.appname"),
		LicenseKey: viper.GetString("newrelic.licensekey"),
		Enabled:    viper.GetBool("newrelic.enabled"),
	}

	schedulingConfig := SchedulingConfig{
		OccurrenceLimit: viper.GetInt("scheduling.occurrencelimit"),
		MaxBatchSize:    viper.GetInt("scheduling.maxbatchsize"),
	}

	notificationsConfig := NotificationsConfig{
		RetentionDays:   viper.GetInt("notifications.retentiondays"),
		CleanupSchedule: viper.GetString("notifications.cleanupschedule"),
	}

	return &Config{
		Server:        serverConfig,
		Database:      dbConfig,
		Redis:         redisConfig,
		ServiceBus:    serviceBusConfig,
		NewRelic:      newRelicConfig,
		Scheduling:    schedulingConfig,
		Notifications: notificationsConfig,
	}, nil
}
