// Package config collects environment-derived settings into explicit structs
// that are built once at startup and passed into constructors.
package config

import "os"

// Config is the full application configuration.
type Config struct {
	Server ServerConfig
	Mongo  MongoConfig
	Auth   AuthConfig
	Chapa  ChapaConfig
	Mpesa  MpesaConfig
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        string
	FrontendURL string
}

// MongoConfig holds database connection settings.
type MongoConfig struct {
	URI      string
	Database string
}

// AuthConfig holds JWT verification settings.
type AuthConfig struct {
	JWTSecret  string
	AdminEmail string
}

// ChapaConfig holds Chapa API credentials.
type ChapaConfig struct {
	BaseURL   string
	SecretKey string
}

// MpesaConfig holds Daraja API credentials for STK push.
type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
}

// Load reads configuration from the environment, applying development defaults
// where a value is optional.
func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "4000"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5174"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "shop"),
		},
		Auth: AuthConfig{
			JWTSecret:  os.Getenv("JWT_SECRET"),
			AdminEmail: os.Getenv("ADMIN_EMAIL"),
		},
		Chapa: ChapaConfig{
			BaseURL:   getEnv("CHAPA_BASE_URL", "https://api.chapa.co"),
			SecretKey: os.Getenv("CHAPA_SECRET_KEY"),
		},
		Mpesa: MpesaConfig{
			BaseURL:        getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
			ShortCode:      os.Getenv("MPESA_BUSINESS_SHORT_CODE"),
			Passkey:        os.Getenv("MPESA_PASSKEY"),
			CallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
		},
	}
}

// getEnv gets environment variable with fallback.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
