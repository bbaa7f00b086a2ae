package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_NAME", "API_BASE_PATH", "JWT_TTL", "REMINDER_HOUR", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW", "DATABASE_URL", "REMINDER_CRON"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "task-tracker", cfg.AppName)
	assert.Equal(t, "/api", cfg.APIBasePath)
	assert.Equal(t, 168*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, "0 9 * * *", cfg.ReminderSchedule())
	assert.Equal(t, 1, cfg.ReminderHorizonDays)
}

func TestLoadOverridesAndFallbacks(t *testing.T) {
	t.Setenv("REMINDER_HOUR", "18")
	t.Setenv("JWT_TTL", "not-a-duration")
	t.Setenv("REMINDER_SEND_RATE", "2.5")
	t.Setenv("COOKIE_SECURE", "true")
	cfg := Load()

	assert.Equal(t, "0 18 * * *", cfg.ReminderSchedule())
	assert.Equal(t, 168*time.Hour, cfg.JWTTTL, "invalid values fall back to the default")
	assert.Equal(t, 2.5, cfg.ReminderSendRate)
	assert.True(t, cfg.CookieSecure)

	t.Setenv("REMINDER_CRON", "*/30 * * * *")
	assert.Equal(t, "*/30 * * * *", Load().ReminderSchedule())
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "app", DBPassword: "p@ss word", DBHost: "db", DBPort: "5432", DBName: "tasks", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/tasks?sslmode=disable", cfg.PostgresDSN())

	cfg.DatabaseURL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.PostgresDSN())
}

func TestMailConfigured(t *testing.T) {
	cfg := &Config{MailSendEnabled: true, MailDelivery: "direct"}
	assert.False(t, cfg.MailConfigured())

	cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender = "mg.example.com", "key", "noreply@example.com"
	assert.True(t, cfg.MailConfigured())

	cfg.MailSendEnabled = false
	assert.False(t, cfg.MailConfigured())

	cfg = &Config{MailSendEnabled: true, MailDelivery: "queue", RabbitMQURL: "amqp://localhost"}
	assert.True(t, cfg.MailConfigured())
}

func TestListsAndLocation(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " http://a.test, ,http://b.test", ReminderTimezone: "Nowhere/Invalid"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
	assert.Empty(t, cfg.ESAddrs())
	assert.Equal(t, time.UTC, cfg.ReminderLocation())
}
