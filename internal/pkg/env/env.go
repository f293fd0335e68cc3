package env

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Env holds the values read from the .env file. Entries here shadow the
// process environment.
var Env map[string]string

// envFiles are tried in order; the first readable one wins. The relative
// paths cover `go run` and `go test` started below the project root.
var envFiles = []string{".env", "../../.env", "../../../.env"}

func lookup(key string) (string, bool) {
	if v, ok := Env[key]; ok {
		return v, true
	}
	v := os.Getenv(key)
	return v, v != ""
}

func GetEnv(key, def string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return def
}

// GetEnvInt falls back to def when the variable is unset or not a number.
func GetEnvInt(key string, def int) int {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("Ignoring %s=%q: not an integer", key, v)
		return def
	}
	return n
}

func SetupEnvFile() {
	for _, path := range envFiles {
		values, err := godotenv.Read(path)
		if err != nil {
			continue
		}
		Env = values
		return
	}
	Env = map[string]string{}
	log.Printf("No .env file found, using process environment only")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}

// IsProduction is true for every APP_ENV other than "dev".
func IsProduction() bool {
	return !IsDev()
}
