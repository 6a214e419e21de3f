package config

import (
	"fmt"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DEVELOPMENT = "development"
	STAGING     = "staging"
	PRODUCTION  = "production"
)

const (
	StoreTypePostgres = "postgres"
	StoreTypeMemory   = "memory"
)

type DBConf struct {
	Host     string `json:"host" envconfig:"DB_HOST"`
	Port     int    `json:"port" envconfig:"DB_PORT"`
	User     string `json:"user" envconfig:"DB_USER"`
	Name     string `json:"name" envconfig:"DB_NAME"`
	Password string `json:"password" envconfig:"DB_PASS"`
}

type Configuration struct {
	AppName          string `json:"app_name"`
	Env              string `json:"env" envconfig:"ENV"`
	StoreType        string `json:"store_type" envconfig:"STORE_TYPE"`
	DBInfo           DBConf `json:"db"`
	PipelineFilepath string `json:"pipeline_filepath" envconfig:"PIPELINE_FILEPATH"`
}

type Services struct {
	Db *gorm.DB
}

var configuration *Configuration
var services *Services = &Services{}

// InitConf sets the process configuration, applies DAYMART_* environment
// overrides and initializes logging. Must be called before InitDB.
func InitConf(config *Configuration) {
	configuration = config

	if err := envconfig.Process("daymart", configuration); err != nil {
		log.WithError(err).Warn("Failed to apply env overrides on configuration.")
	}

	if configuration.StoreType == "" {
		configuration.StoreType = StoreTypePostgres
	}

	initLogging()
}

func initLogging() {
	if IsDevelopment() {
		log.SetLevel(log.DebugLevel)
		return
	}

	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})
}

// InitDB initializes the warehouse connection. Not required when the
// in-memory store is configured.
func InitDB(dbConf DBConf) error {
	db, err := gorm.Open("postgres", fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s password=%s sslmode=disable",
		dbConf.Host, dbConf.Port, dbConf.User, dbConf.Name, dbConf.Password))
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("Failed db initialization.")
		return errors.Wrap(err, "open warehouse connection")
	}

	// Connection pooling and logging.
	db.DB().SetMaxIdleConns(10)
	db.DB().SetMaxOpenConns(50)
	db.LogMode(IsDevelopment())

	services.Db = db
	log.Info("Db service initialized.")
	return nil
}

func GetConfig() *Configuration {
	if configuration == nil {
		log.Fatal("Configuration not initialized. InitConf not called.")
	}
	return configuration
}

func GetServices() *Services {
	return services
}

func IsDevelopment() bool {
	return GetConfig().Env == DEVELOPMENT
}

func UseMemoryStore() bool {
	return GetConfig().StoreType == StoreTypeMemory
}

// IsValidEnv reports whether env is one of the recognised environments.
func IsValidEnv(env string) bool {
	return env == DEVELOPMENT || env == STAGING || env == PRODUCTION
}
