package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	ServerPort uint16 `env:"SERVERPORT" envDefault:"8080" validate:"min=1000,max=65535"`

	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort uint16 `env:"REDIS_PORT" envDefault:"6379"   validate:"min=1000,max=65535"`

	DatabaseHost     string `env:"DATABASE_HOST"     envDefault:"localhost"`
	DatabasePort     string `env:"DATABASE_PORT"     envDefault:"5432"`
	DatabaseUser     string `env:"DATABASE_USER"     envDefault:"emblitz_user"`
	DatabasePassword string `env:"DATABASE_PASSWORD" envDefault:"emblitz_password"`
	DatabaseName     string `env:"DATABASE_NAME"     envDefault:"emblitz_db"`
	DatabaseMaxConns int    `env:"DATABASE_MAX_CONNS" envDefault:"25" validate:"min=1"`

	AuthSecret          string `env:"AUTHSECRET"          envDefault:"dev-secret" validate:"min=6"`
	AdminMasterPassword string `env:"ADMINMASTERPASSWORD" envDefault:""`

	// lobby countdown and deploy phase lengths, seconds
	LobbyTime  int `env:"LOBBY_TIME"  envDefault:"30" validate:"min=1"`
	DeployTime int `env:"DEPLOY_TIME" envDefault:"10" validate:"min=1"`

	MapDataDir string `env:"MAPDATA_DIR" envDefault:"mapdata"`

	// number of bot players kept cycling through public matchmaking
	BotFill int `env:"BOTFILL" envDefault:"0" validate:"min=0"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	validate := validator.New()
	if err = validate.Struct(cfg); err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
