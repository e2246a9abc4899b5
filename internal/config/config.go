// Package config loads the service settings from CONTACTBOOK_* environment
// variables over built-in defaults. The result is built once in main and
// passed down; nothing reads the environment after startup.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "CONTACTBOOK_"

type Config struct {
	Port     string
	Env      string
	LogLevel string

	// DBDriver selects the credential store: "sqlite" or "mongo".
	DBDriver      string
	DBPath        string
	MongoURI      string
	MongoDatabase string

	SecretKey           string
	TokenTTL            time.Duration
	RequireVerification bool
	AllowedTLDs         []string

	BaseURL       string
	PostmarkToken string
	FromEmail     string

	PublicDir string
	// AvatarStorage selects where processed avatars go: "local" or "s3".
	AvatarStorage string
	S3            S3Config

	CORSOrigin string
	// TrustProxy honors CF-Connecting-IP and X-Forwarded-For when keying
	// rate limits. Enable it only behind a proxy that overwrites them.
	TrustProxy bool
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicURL prefixes object keys to form the avatar URL.
	PublicURL string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Port = "3000"
	c.Env = "development"
	c.LogLevel = "info"
	c.DBDriver = "sqlite"
	c.DBPath = "contactbook.db"
	c.MongoURI = "mongodb://localhost:27017"
	c.MongoDatabase = "contactbook"
	c.TokenTTL = 24 * time.Hour
	c.RequireVerification = true
	c.AllowedTLDs = []string{"com", "net"}
	c.PublicDir = "public"
	c.AvatarStorage = "local"
	c.S3.Region = "us-east-1"
	c.CORSOrigin = "*"
}

// Load builds a Config from defaults overlaid with values from getenv.
func Load(getenv func(string) string) (*Config, error) {
	c := &Config{}
	c.LoadDefaults()

	get := func(key string) string {
		return strings.TrimSpace(getenv(envPrefix + key))
	}
	setString := func(dst *string, key string) {
		if v := get(key); v != "" {
			*dst = v
		}
	}

	setString(&c.Port, "PORT")
	setString(&c.Env, "ENV")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.DBPath, "DB_PATH")
	setString(&c.MongoURI, "MONGO_URI")
	setString(&c.MongoDatabase, "MONGO_DATABASE")
	setString(&c.SecretKey, "SECRET_KEY")
	setString(&c.BaseURL, "BASE_URL")
	setString(&c.PostmarkToken, "POSTMARK_TOKEN")
	setString(&c.FromEmail, "FROM_EMAIL")
	setString(&c.PublicDir, "PUBLIC_DIR")
	setString(&c.AvatarStorage, "AVATAR_STORAGE")
	setString(&c.S3.Endpoint, "S3_ENDPOINT")
	setString(&c.S3.Region, "S3_REGION")
	setString(&c.S3.Bucket, "S3_BUCKET")
	setString(&c.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.S3.SecretKey, "S3_SECRET_KEY")
	setString(&c.S3.PublicURL, "S3_PUBLIC_URL")
	setString(&c.CORSOrigin, "CORS_ORIGIN")

	if v := get("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse %sTOKEN_TTL: %w", envPrefix, err)
		}
		c.TokenTTL = d
	}
	for _, b := range []struct {
		key string
		dst *bool
	}{{"REQUIRE_VERIFICATION", &c.RequireVerification}, {"TRUST_PROXY", &c.TrustProxy}} {
		v := get(b.key)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parse %s%s: %w", envPrefix, b.key, err)
		}
		*b.dst = parsed
	}
	if v := get("ALLOWED_TLDS"); v != "" {
		c.AllowedTLDs = nil
		for _, tld := range strings.Split(v, ",") {
			if tld = strings.ToLower(strings.TrimSpace(tld)); tld != "" {
				c.AllowedTLDs = append(c.AllowedTLDs, tld)
			}
		}
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:" + c.Port
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports the first setting that would keep the server from running correctly.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return errors.New(envPrefix + "SECRET_KEY is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New(envPrefix + "TOKEN_TTL must be positive")
	}
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return errors.New(envPrefix + "DB_PATH is required for sqlite")
		}
	case "mongo":
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return errors.New(envPrefix + "MONGO_URI and MONGO_DATABASE are required for mongo")
		}
	default:
		return fmt.Errorf("unknown %sDB_DRIVER %q", envPrefix, c.DBDriver)
	}
	switch c.AvatarStorage {
	case "local":
	case "s3":
		if c.S3.Bucket == "" || c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			return errors.New("s3 avatar storage needs bucket, access key and secret key")
		}
	default:
		return fmt.Errorf("unknown %sAVATAR_STORAGE %q", envPrefix, c.AvatarStorage)
	}
	if len(c.AllowedTLDs) == 0 {
		return errors.New(envPrefix + "ALLOWED_TLDS must name at least one domain")
	}
	return nil
}

// IsProduction reports whether logs should be written as JSON.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
