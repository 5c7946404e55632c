package parker6k

import (
	"os"
	"strconv"
)

// Config хранит модель конфигурации приложения
type Config struct {
	Name      string
	Transport string
	Address   string
	Device    string
	Baud      int
	Dialect   string

	NumAxes            int
	TimeoutMs          int
	MovingPollPeriodMs int
	IdlePollPeriodMs   int
	ForcedFastPolls    int

	LogLevel string
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	name := os.Getenv("P6K_NAME")
	if name == "" {
		name = "P6K1"
	}

	transport := os.Getenv("P6K_TRANSPORT")
	if transport == "" {
		transport = "tcp"
	}

	address := os.Getenv("P6K_ADDRESS")
	if address == "" {
		address = "10.0.0.2:4001"
	}

	device := os.Getenv("P6K_DEVICE")
	if device == "" {
		device = "/dev/ttyS0"
	}

	return &Config{
		Name:               name,
		Transport:          transport,
		Address:            address,
		Device:             device,
		Baud:               envInt("P6K_BAUD", 9600),
		Dialect:            os.Getenv("P6K_DIALECT"),
		NumAxes:            envInt("P6K_AXES", 4),
		TimeoutMs:          envInt("P6K_TIMEOUT", 5000),
		MovingPollPeriodMs: envInt("P6K_MOVING_POLL", 100),
		IdlePollPeriodMs:   envInt("P6K_IDLE_POLL", 500),
		ForcedFastPolls:    envInt("P6K_FORCED_FAST_POLLS", 10),
		LogLevel:           envDefault("LOG_LEVEL", "info"),
	}
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
