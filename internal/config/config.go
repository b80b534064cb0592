package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string

	HTTPAddr      string
	AuthJWTSecret string
	OTLPEndpoint  string

	Discord DiscordConfig
	Home    HomeServerConfig
	Redis   RedisConfig
	Jobs    JobsConfig

	MetricsPush MetricsPushConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
}

type DiscordConfig struct {
	Token         string
	ApplicationID string
	GuildID       string
	PartnerRoleID string
	OwnerIDs      []string
	Channels      ChannelConfig
}

type ChannelConfig struct {
	OwnAd       string
	PartnerAd   string
	Application string
	Community   string
	Log         string
}

// HomeServerConfig describes the community the bot advertises on its own behalf.
type HomeServerConfig struct {
	Name        string
	Invite      string
	Description string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Self-service applications allowed per applicant within one window.
	ApplicationLimit  int
	ApplicationWindow time.Duration
}

type JobsConfig struct {
	TickInterval   time.Duration
	AuditHourUTC   int
	AuditInterval  time.Duration
	AdvertInterval time.Duration
	AuditTimeout   time.Duration
	AdvertTimeout  time.Duration

	// EnabledJobs limits the scheduler to the named jobs; empty runs all.
	EnabledJobs []string
}

// MetricsPushConfig ships the Prometheus registry to a remote endpoint for
// deployments that cannot be scraped.
type MetricsPushConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
	Interval  time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:       getenv("APP_SERVICE", "partnerbot"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   getenv("ENVIRONMENT", "development"),
		LogLevel:      strings.ToLower(getenv("LOG_LEVEL", "info")),
		HTTPAddr:      getenv("WEB_ADDR", ":3000"),
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		OTLPEndpoint:  strings.TrimSpace(getenv("OTLP_ENDPOINT", "")),
		Discord: DiscordConfig{
			Token:         strings.TrimSpace(getenv("DISCORD_TOKEN", "")),
			ApplicationID: strings.TrimSpace(getenv("DISCORD_APPLICATION_ID", "")),
			GuildID:       strings.TrimSpace(getenv("DISCORD_GUILD_ID", "")),
			PartnerRoleID: strings.TrimSpace(getenv("PARTNER_ROLE_ID", "")),
			OwnerIDs:      parseList(getenv("OWNER_IDS", "")),
			Channels: ChannelConfig{
				OwnAd:       strings.TrimSpace(getenv("OWN_AD_CHANNEL", "")),
				PartnerAd:   strings.TrimSpace(getenv("PARTNER_AD_CHANNEL", "")),
				Application: strings.TrimSpace(getenv("APPLICATION_CHANNEL", "")),
				Community:   strings.TrimSpace(getenv("COMMUNITY_CHANNEL", "")),
				Log:         strings.TrimSpace(getenv("LOG_CHANNEL", "")),
			},
		},
		Home: HomeServerConfig{
			Name:        getenv("SERVER_NAME", "My Server"),
			Invite:      getenv("SERVER_INVITE", "https://discord.gg/example"),
			Description: getenv("SERVER_DESCRIPTION", "Welcome to our server!"),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),

			ApplicationLimit:  getenvInt("APPLICATION_LIMIT", 2),
			ApplicationWindow: getenvDuration("APPLICATION_WINDOW", time.Hour),
		},
		Jobs: JobsConfig{
			TickInterval:   getenvDuration("SCHEDULER_TICK", time.Minute),
			AuditHourUTC:   getenvInt("AUDIT_HOUR_UTC", 12),
			AuditInterval:  getenvDuration("AUDIT_INTERVAL", 24*time.Hour),
			AdvertInterval: getenvDuration("ADVERT_INTERVAL", 6*time.Hour),
			AuditTimeout:   getenvDuration("AUDIT_TIMEOUT", 2*time.Hour),
			AdvertTimeout:  getenvDuration("ADVERT_TIMEOUT", 30*time.Minute),
			EnabledJobs:    parseList(getenv("SCHEDULER_JOBS", "")),
		},
		MetricsPush: MetricsPushConfig{
			Exporter:  strings.ToLower(strings.TrimSpace(getenv("METRICS_PUSH_EXPORTER", ""))),
			Endpoint:  strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("METRICS_PUSH_TOKEN", "")),
			Interval:  getenvDuration("METRICS_PUSH_INTERVAL", time.Minute),
		},
		DBType:            getenv("DATABASE_TYPE", "sqlite"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "partnerbot"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "partnerbot.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
	}
}

// IsOwner reports whether userID is one of the configured bot owners.
func (c Config) IsOwner(userID string) bool {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false
	}
	for _, id := range c.Discord.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c Config) DiscordEnabled() bool {
	return c.Discord.Token != ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
