package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
	Env            string         // application environment (e.g. "dev", "prod")
	Port           string         // HTTP port to listen on
	LogLevel       string         // DEBUG, INFO, WARN, ERROR
	Location       *time.Location // zone used to decide what "today" is
	DBUser         string         // database username
	DBPass         string         // database password (optional)
	DBHost         string         // database host address
	DBPort         string         // database port number
	DBName         string         // database name
	AutoMigrate    bool           // apply embedded migrations at startup
	JWTSecret      string         // secret used to sign JWTs
	AccessTTLMin   int            // access token time‑to‑live in minutes
	RefreshTTLDays int            // refresh token time‑to‑live in days
	BcryptCost     int            // bcrypt cost for password hashing
	// LegacyPlaintext accepts password rows imported from the old dataset
	// that were stored without hashing.  They are re-hashed on first login.
	LegacyPlaintext bool
	RequestTimeout  time.Duration // read/write timeout of the HTTP server
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),                         // environment (dev/test/prod)
		Port:            must("APP_PORT"),                        // port to bind the HTTP server
		LogLevel:        envStr("LOG_LEVEL", "INFO"),             // logger threshold
		Location:        mustLocation(os.Getenv("APP_TIMEZONE")), // calendar zone for derived availability
		DBUser:          must("DB_USER"),                         // database user
		DBPass:          os.Getenv("DB_PASS"),                    // database password (empty allowed)
		DBHost:          must("DB_HOST"),                         // database host
		DBPort:          must("DB_PORT"),                         // database port
		DBName:          must("DB_NAME"),                         // database name
		AutoMigrate:     envBool("DB_AUTO_MIGRATE", false),       // run schema migrations on boot
		JWTSecret:       must("JWT_SECRET"),                      // secret used for signing JWTs
		AccessTTLMin:    mustInt("ACCESS_TOKEN_TTL_MIN"),         // TTL for access tokens in minutes
		RefreshTTLDays:  mustInt("REFRESH_TOKEN_TTL_DAYS"),       // TTL for refresh tokens in days
		BcryptCost:      mustInt("BCRYPT_COST"),                  // bcrypt cost factor
		LegacyPlaintext: envBool("LEGACY_PLAINTEXT_PASSWORDS", false),
		RequestTimeout:  envDur("HTTP_REQUEST_TIMEOUT", 15*time.Second),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// mustLocation resolves an IANA zone name.  An empty name means the
// server's local zone.
func mustLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Fatalf("invalid APP_TIMEZONE %q: %v", name, err)
	}
	return loc
}
