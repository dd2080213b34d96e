package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/moyijulius/crime-report-platform/models"
)

// Config holds the project config values
type Config struct {
	URL            string
	DatabaseName   string
	BaseURL        string
	Port           string
	Environment    string
	AllowedOrigins []string

	JWTSecret string
	TokenTTL  time.Duration

	AttachmentStore string
	UploadDir       string
	MaxUploadBytes  int64
	MaxFiles        int
	MinIO           MinIOConfig
	CloudinaryURL   string
	CloudinaryDir   string

	AMQPURI     string
	EventsQueue string

	SendGridAPIKey string
	MailFrom       string
	MailFromName   string

	StaleReportAfter time.Duration
	DigestSchedule   string
}

// MinIOConfig holds the settings of the S3 compatible attachment store
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// New sets up all config related services
func New() *Config {
	// a missing .env is fine, real deployments set the environment directly
	_ = godotenv.Load()

	env := getEnv("ENVIRONMENT", "local")
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:            getEnv("DB_URI", "mongodb://127.0.0.1:27017"),
		DatabaseName:   getEnv("DB_NAME", "ReportCrime"),
		BaseURL:        os.Getenv("BASE_URL"),
		Port:           getEnv("PORT", "5000"),
		Environment:    env,
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"*"}),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  getDuration("TOKEN_TTL", time.Hour),

		AttachmentStore: getEnv("ATTACHMENT_STORE", "local"),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes:  int64(getInt("MAX_UPLOAD_MB", 25)) << 20,
		MaxFiles:        getInt("MAX_FILES", 10),
		MinIO: MinIOConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "report-attachments"),
			UseSSL:    getBool("MINIO_USE_SSL", false),
		},
		CloudinaryURL: os.Getenv("CLOUDINARY_URL"),
		CloudinaryDir: getEnv("CLOUDINARY_FOLDER", "report-attachments"),

		AMQPURI:     os.Getenv("AMQP_URI"),
		EventsQueue: getEnv("EVENTS_QUEUE", "report_events"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@crimereport.local"),
		MailFromName:   getEnv("MAIL_FROM_NAME", "Crime Report Platform"),

		StaleReportAfter: time.Duration(getInt("STALE_REPORT_HOURS", 48)) * time.Hour,
		DigestSchedule:   getEnv("DIGEST_CRON", "0 8 * * *"),
	}
}

func setLogger(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	default:
		return zap.NewExample(), nil
	}
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	resp := models.ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	if httpStatusCode >= http.StatusInternalServerError {
		zap.S().Errorw(message, "error", err)
	} else {
		zap.S().Debugw(message, "status", httpStatusCode, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
