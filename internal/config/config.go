// Package config reads server settings from the environment.
package config

import (
	"time"

	"reveal-backend/internal/utils"
)

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	PublicURL       string
}

type Config struct {
	Port string

	// StorageDriver is one of "memory", "postgres" or "sqlite".
	StorageDriver string
	DatabaseURL   string
	SQLitePath    string

	JWTSecret string
	JWTTTL    time.Duration
	// AllowUserIDParam accepts ?user_id= as identity, as the demo client sends it.
	AllowUserIDParam bool

	CORSOrigins []string
	BodyLimit   int

	// BlobDriver is "disk" (served from UploadDir at /uploads) or "s3".
	BlobDriver string
	UploadDir  string
	BaseURL    string
	S3         S3Config

	SeedDemo bool
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	// Load Env
	_ = utils.LoadEnv()

	connString := utils.GetEnv("DATABASE_URL", "")
	if connString == "" {
		// Fallback to individual vars
		connString = "postgres://" + utils.GetEnv("POSTGRES_USER", "postgres") + ":" +
			utils.GetEnv("POSTGRES_PASSWORD", "postgres") + "@" +
			utils.GetEnv("POSTGRES_HOST", "localhost") + ":" +
			utils.GetEnv("POSTGRES_PORT", "5432") + "/" +
			utils.GetEnv("POSTGRES_DB", "reveal") + "?sslmode=disable"
	}

	return Config{
		Port:             utils.GetEnv("PORT", "8000"),
		StorageDriver:    utils.GetEnv("STORAGE_DRIVER", "memory"),
		DatabaseURL:      connString,
		SQLitePath:       utils.GetEnv("SQLITE_PATH", "reveal.db"),
		JWTSecret:        utils.GetEnv("JWT_SECRET", "secret"),
		JWTTTL:           time.Duration(utils.GetEnvInt("JWT_TTL_HOURS", 72)) * time.Hour,
		AllowUserIDParam: utils.GetEnvBool("ALLOW_USER_ID_AUTH", true),
		CORSOrigins:      utils.GetEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		BlobDriver:       utils.GetEnv("BLOB_DRIVER", "disk"),
		UploadDir:        utils.GetEnv("UPLOAD_DIR", "uploads"),
		BaseURL:          utils.GetEnv("BASE_URL", ""),
		BodyLimit:        utils.GetEnvInt("BODY_LIMIT_MB", 10) * 1024 * 1024,
		SeedDemo:         utils.GetEnvBool("SEED_DEMO", true),
		S3: S3Config{
			Region:          utils.GetEnv("S3_REGION", "us-east-1"),
			Bucket:          utils.GetEnv("S3_BUCKET", ""),
			AccessKeyID:     utils.GetEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: utils.GetEnv("S3_SECRET_ACCESS_KEY", ""),
			Endpoint:        utils.GetEnv("S3_ENDPOINT", ""),
			PublicURL:       utils.GetEnv("S3_PUBLIC_URL", ""),
		},
	}
}
