package config

import (
	"os"
	"strings"
)

type Config struct {
	Port           string
	MongoURI       string
	MongoDatabase  string
	RabbitURI      string
	RabbitExchange string
	AudioEnabled   bool
	AudioDir       string
	CORSOrigins    []string
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.MongoURI = os.Getenv("MONGO_URI")
	c.MongoDatabase = getenv("MONGO_DATABASE", "sinbadgame")
	c.RabbitURI = os.Getenv("RABBITMQ_URI")
	c.RabbitExchange = getenv("RABBITMQ_EXCHANGE", "sinbad.events")
	c.AudioEnabled = getenv("AUDIO_ENABLED", "false") == "true"
	c.AudioDir = getenv("AUDIO_DIR", "./assets")
	c.CORSOrigins = strings.Split(getenv("CORS_ORIGINS", "http://localhost:3000"), ",")
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
