package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	MediaRoot  string `yaml:"media_root" env:"MEDIA_ROOT" env-default:"./media"`
	HTTPServer `yaml:"http_server"`
	Video      `yaml:"video"`
}

type HTTPServer struct {
	Address      string        `yaml:"address" env:"ADDRESS" env-default:":3000"`
	Timeout      time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"4s"`
	IddleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	BodyLimit    int           `yaml:"body_limit" env:"HTTP_BODY_LIMIT" env-default:"10485760"`
}

type Video struct {
	FrameRate     int           `yaml:"frame_rate" env:"VIDEO_FRAME_RATE" env-default:"6"`
	MinFrames     int           `yaml:"min_frames" env:"VIDEO_MIN_FRAMES" env-default:"2"`
	EncodeTimeout time.Duration `yaml:"encode_timeout" env:"VIDEO_ENCODE_TIMEOUT" env-default:"2m"`
}

// MustLoad loads config from file if one is given,
// otherwise from environment variables with defaults.
// The device side only ever sets ADDRESS, so the
// no-file path must always succeed.
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		var cfg Config
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			panic("cannot read config from env: " + err.Error())
		}
		return &cfg
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
// Default value is empty string.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
