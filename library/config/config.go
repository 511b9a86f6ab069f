package config

import (
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Astemirdum/library-loans/pkg/auth"
	"github.com/Astemirdum/library-loans/pkg/blob"
	"github.com/Astemirdum/library-loans/pkg/circuit_breaker"
	"github.com/Astemirdum/library-loans/pkg/kafka"
	"github.com/Astemirdum/library-loans/pkg/logger"
	"github.com/Astemirdum/library-loans/pkg/postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"LIBRARY_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"LIBRARY_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE" default:"10s"`
	// BodyLimit caps request bodies, uploads included.
	BodyLimit string `yaml:"bodyLimit" envconfig:"HTTP_BODY_LIMIT" default:"16M"`
}

// Admin is the account created on startup when Username is set.
type Admin struct {
	Username string `envconfig:"ADMIN_USERNAME"`
	Email    string `envconfig:"ADMIN_EMAIL"`
	Password string `envconfig:"ADMIN_PASSWORD"`
}

type Redis struct {
	Enable   bool          `yaml:"enable" envconfig:"REDIS_ENABLE" default:"false"`
	Addr     string        `yaml:"addr" envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `yaml:"ttl" envconfig:"REDIS_TTL" default:"5m"`
}

type Config struct {
	Server   HTTPServer             `yaml:"server"`
	Database postgres.DB            `yaml:"db"`
	Log      logger.Log             `yaml:"log"`
	Auth     auth.Config            `yaml:"auth"`
	Admin    Admin                  `yaml:"admin"`
	Media    blob.Config            `yaml:"media"`
	Kafka    kafka.Config           `yaml:"kafka"`
	Breaker  circuit_breaker.Config `yaml:"breaker"`
	Redis    Redis                  `yaml:"redis"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		if err := envconfig.Process("", &config); err != nil {
			log.Fatal("NewConfig ", err)
		}
		for _, op := range ops {
			op(&config)
		}
		cfg = &config
	})

	return cfg
}
