// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
    "errors"
    "fmt"
    "io/fs"
    "os"
    "strconv"
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env            string        // APP_ENV: dev, test or prod
    Port           string        // APP_PORT
    DBUser         string        // DB_USER
    DBPass         string        // DB_PASS (may be empty)
    DBHost         string        // DB_HOST
    DBPort         string        // DB_PORT
    DBName         string        // DB_NAME
    DBTimeout      time.Duration // DB_TIMEOUT: bound on storage work per request
    DBMigrate      bool          // DB_MIGRATE: apply schema.sql at boot
    JWTSecret      string        // JWT_SECRET
    AccessTTLMin   int           // ACCESS_TOKEN_TTL_MIN
    RefreshTTLDays int           // REFRESH_TOKEN_TTL_DAYS
    BcryptCost     int           // BCRYPT_COST
    RabbitMQURL    string        // RABBITMQ_URL (or AMQP_URL); empty disables events
    EventLogDir    string        // EVENT_LOG_DIR: where the consumer writes reservation.log
    SweepAt        string        // NOSHOW_SWEEP_AT: HH:MM server local time
    SweepEnabled   bool          // NOSHOW_SWEEP_ENABLED
    MetricsEnabled bool          // METRICS_ENABLED
}

// LoadDotEnv loads .env into the process environment when the file exists.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
    if len(paths) == 0 {
        paths = []string{".env"}
    }
    for _, p := range paths {
        if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
            return fmt.Errorf("load %s: %w", p, err)
        }
    }
    return nil
}

// Load reads configuration from the environment.  Every missing or
// malformed required variable is reported in the returned error.
func Load() (Config, error) {
    var l loader
    cfg := Config{
        Env:            l.must("APP_ENV"),
        Port:           l.must("APP_PORT"),
        DBUser:         l.must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"),
        DBHost:         l.must("DB_HOST"),
        DBPort:         l.must("DB_PORT"),
        DBName:         l.must("DB_NAME"),
        DBTimeout:      envDur("DB_TIMEOUT", 5*time.Second),
        DBMigrate:      envBool("DB_MIGRATE", false),
        JWTSecret:      l.must("JWT_SECRET"),
        AccessTTLMin:   l.mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: l.mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     envInt("BCRYPT_COST", 10),
        RabbitMQURL:    envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
        EventLogDir:    envStr("EVENT_LOG_DIR", "logs"),
        SweepAt:        envStr("NOSHOW_SWEEP_AT", "19:00"),
        SweepEnabled:   envBool("NOSHOW_SWEEP_ENABLED", true),
        MetricsEnabled: envBool("METRICS_ENABLED", true),
    }
    if cfg.DBTimeout <= 0 {
        cfg.DBTimeout = 5 * time.Second
    }
    return cfg, errors.Join(l.errs...)
}

// DSNParts returns the database connection settings in the order
// database.DSN expects them.
func (c Config) DSNParts() (user, pass, host, port, name string) {
    return c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName
}

type loader struct {
    errs []error
}

// must retrieves a required environment variable.
func (l *loader) must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
    }
    return v
}

// mustInt is like must but converts the value into an integer.
func (l *loader) mustInt(key string) int {
    s := l.must(key)
    if s == "" {
        return 0
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        l.errs = append(l.errs, fmt.Errorf("invalid int for %s: %q", key, s))
    }
    return n
}
