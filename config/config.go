package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server struct {
		Port           int           `mapstructure:"port"`
		RateLimit      int           `mapstructure:"rate_limit"` // запросов в минуту с одного IP
		RequestTimeout time.Duration `mapstructure:"request_timeout"`
	} `mapstructure:"server"`
	DB struct {
		Host           string `mapstructure:"host"`
		Port           int    `mapstructure:"port"`
		User           string `mapstructure:"user"`
		Password       string `mapstructure:"password"`
		Name           string `mapstructure:"name"`
		SSLMode        string `mapstructure:"sslmode"`
		MigrationsPath string `mapstructure:"migrations_path"`
	} `mapstructure:"db"`
	JWT struct {
		SecretKey string `mapstructure:"secret_key"`
		ExpiresIn int    `mapstructure:"expires_in"` // в часах
	} `mapstructure:"jwt"`
	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
	} `mapstructure:"smtp"`
	Obligations struct {
		MonthsAhead int    `mapstructure:"months_ahead"` // горизонт генерации обязательств
		Timezone    string `mapstructure:"timezone"`     // зона, в которой определяется "сегодня"
	} `mapstructure:"obligations"`
	Scheduler struct {
		Enabled  bool          `mapstructure:"enabled"`
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"scheduler"`
	Log struct {
		Dir   string `mapstructure:"dir"`
		Debug bool   `mapstructure:"debug"`
	} `mapstructure:"log"`
}

// DSN возвращает строку подключения к Postgres в формате key=value
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

// MigrationURL возвращает URL подключения для golang-migrate
func (c *Config) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

// NewConfig создает новый экземпляр конфигурации.
// Значения берутся из config.yaml (если есть), затем из переменных окружения
// вида DB_HOST, OBLIGATIONS_MONTHS_AHEAD и т.д.
func NewConfig() (*Config, error) {
	return Load("")
}

// Load загружает конфигурацию; configFile может быть пустым
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Настройки сервера
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.request_timeout", "30s")

	// Настройки базы данных
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "lease_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.migrations_path", "file://migrations")

	// Настройки JWT
	v.SetDefault("jwt.secret_key", "your-secret-key-here")
	v.SetDefault("jwt.expires_in", 24)

	// Настройки SMTP
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "your-email@gmail.com")
	v.SetDefault("smtp.password", "your-app-password")
	v.SetDefault("smtp.from", "your-email@gmail.com")

	// Настройки обязательств
	v.SetDefault("obligations.months_ahead", 2)
	v.SetDefault("obligations.timezone", "UTC")

	// Настройки планировщика
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval", "1h")

	// Настройки логов
	v.SetDefault("log.dir", "")
	v.SetDefault("log.debug", false)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("неверный порт сервера: %d", c.Server.Port)
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		return fmt.Errorf("неверный порт базы данных: %d", c.DB.Port)
	}
	if c.JWT.ExpiresIn <= 0 {
		return fmt.Errorf("неверное время жизни JWT: %d", c.JWT.ExpiresIn)
	}
	if c.Obligations.MonthsAhead < 1 {
		return fmt.Errorf("горизонт обязательств должен быть не меньше 1 месяца: %d", c.Obligations.MonthsAhead)
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("неверный интервал планировщика: %v", c.Scheduler.Interval)
	}
	return nil
}
