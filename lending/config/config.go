package config

import (
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/adpadillar/software-architecture-library/lending/internal/model"
	"github.com/adpadillar/software-architecture-library/pkg/kafka"
	"github.com/adpadillar/software-architecture-library/pkg/logger"
	"github.com/adpadillar/software-architecture-library/pkg/postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"LENDING_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"LENDING_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE"`
}

type Config struct {
	Server   HTTPServer       `yaml:"server"`
	Database postgres.DB      `yaml:"db"`
	Kafka    kafka.Config     `yaml:"kafka"`
	Log      logger.Log       `yaml:"log"`
	Policy   model.LoanPolicy `yaml:"policy"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment. Options set defaults the environment may override.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
	})

	return cfg
}
