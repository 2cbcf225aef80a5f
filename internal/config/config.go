package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultDatabasePath is used by the server and CLI commands when no
// explicit database path is given.
const DefaultDatabasePath = "./library.db"

type (
	Config struct {
		HTTP
		Database
		Auth
		Recommender
		Global
	}

	HTTP struct {
		Port int32
		Host string
	}
	Database struct {
		Path string
	}
	Auth struct {
		// TokenSecret signs access and refresh tokens. Auto-generated at
		// startup when empty, which invalidates tokens across restarts.
		TokenSecret   string
		AccessExpiry  time.Duration
		RefreshExpiry time.Duration
		BcryptCost    int
	}
	Recommender struct {
		ModelPath   string
		SampleSize  int
		LikedWindow int // how many most-recently-liked books feed scoring
		TopPerLiked int
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Auth defaults
	v.SetDefault("auth_token_secret", "")
	v.SetDefault("auth_access_expiry", "15m")
	v.SetDefault("auth_refresh_expiry", "24h")
	v.SetDefault("auth_bcrypt_cost", 12)

	// Recommender defaults
	v.SetDefault("recommender_model_path", "./recommender/model.json")
	v.SetDefault("recommender_sample_size", 5)
	v.SetDefault("recommender_liked_window", 5)
	v.SetDefault("recommender_top_per_liked", 5)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			TokenSecret:   v.GetString("AUTH_TOKEN_SECRET"),
			AccessExpiry:  v.GetDuration("AUTH_ACCESS_EXPIRY"),
			RefreshExpiry: v.GetDuration("AUTH_REFRESH_EXPIRY"),
			BcryptCost:    v.GetInt("AUTH_BCRYPT_COST"),
		},
		Recommender: Recommender{
			ModelPath:   v.GetString("RECOMMENDER_MODEL_PATH"),
			SampleSize:  v.GetInt("RECOMMENDER_SAMPLE_SIZE"),
			LikedWindow: v.GetInt("RECOMMENDER_LIKED_WINDOW"),
			TopPerLiked: v.GetInt("RECOMMENDER_TOP_PER_LIKED"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}
