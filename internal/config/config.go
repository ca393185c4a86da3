package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	Redis      Redis  `yaml:"redis"`
	Game       Game   `yaml:"game"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Game holds the platform tunables: snapshot expiry and the two
// scheduling delays the engine stores as timestamps inside the state.
type Game struct {
	RoomTTL      time.Duration `yaml:"room-ttl" env-default:"30m"`
	SessionTTL   time.Duration `yaml:"session-ttl" env-default:"24h"`
	BotMoveDelay time.Duration `yaml:"bot-move-delay" env-default:"1500ms"`
	RoundBreak   time.Duration `yaml:"round-break" env-default:"8s"`
	TargetScore  int           `yaml:"target-score" env-default:"10"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
