package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DBDSN         string
	VerifyToken   string
	WhatsAppToken string
	PhoneNumberID string
	GraphBaseURL  string
	LogFile       string
}

func Load() Config {
	// .env is optional; real deployments inject env vars directly.
	_ = godotenv.Load()

	cfg := Config{
		Port:          getenv("PORT", "8080"),
		DBDSN:         getenv("DB_DSN", "orderbot.db"), // sqlite file in project root
		VerifyToken:   os.Getenv("VERIFY_TOKEN"),
		WhatsAppToken: os.Getenv("WHATSAPP_TOKEN"),
		PhoneNumberID: os.Getenv("PHONE_NUMBER_ID"),
		GraphBaseURL:  getenv("GRAPH_BASE_URL", "https://graph.facebook.com/v18.0"),
		LogFile:       getenv("LOG_FILE", "./orderbot.log"),
	}

	log.Printf("[config] PORT=%s DB_DSN=%s PHONE_NUMBER_ID=%s verify_token=%s whatsapp_token=%s",
		cfg.Port, cfg.DBDSN, cfg.PhoneNumberID, loaded(cfg.VerifyToken), loaded(cfg.WhatsAppToken))
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// loaded reports presence without echoing the secret itself.
func loaded(s string) string {
	if s == "" {
		return "missing"
	}
	return "loaded"
}
