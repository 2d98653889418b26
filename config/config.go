package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4242"`

	// n8n-Webhooks für Content-Generierung und -Anpassung
	N8NContentWebhookURL    string        `envconfig:"N8N_CONTENT_WEBHOOK_URL"`
	N8NAdjustmentWebhookURL string        `envconfig:"N8N_ADJUSTMENT_WEBHOOK_URL"`
	WebhookTimeout          time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"180s"`
	WebhookSource           string        `envconfig:"WEBHOOK_SOURCE" default:"content-hub"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`

	SemrushAPIKey   string `envconfig:"SEMRUSH_API_KEY"`
	SemrushBaseURL  string `envconfig:"SEMRUSH_BASE_URL" default:"https://api.semrush.com/"`
	SemrushDatabase string `envconfig:"SEMRUSH_DATABASE" default:"us"`

	// Leerer Zeitplan deaktiviert den jeweiligen Job
	KeywordRefreshSchedule string `envconfig:"KEYWORD_REFRESH_SCHEDULE" default:"0 3 * * *"`
	ExportSchedule         string `envconfig:"EXPORT_SCHEDULE"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Region    string `envconfig:"S3_REGION" default:"eu-central-1"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`

	// cmd/backup
	BackupPrefix string `envconfig:"BACKUP_PREFIX" default:"backups/"`
	KeepBackups  int    `envconfig:"KEEP_BACKUPS" default:"4"`

	EnabledGenerators string `envconfig:"ENABLED_GENERATORS" default:"n8n,openai"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Generators liefert die aktivierten Generator-Namen, bereinigt und ohne Duplikate.
func (c *Config) Generators() []string {
	seen := map[string]bool{}
	var names []string
	for _, name := range strings.Split(c.EnabledGenerators, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// S3Enabled meldet, ob alle Angaben für den S3-Export vorhanden sind.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
