package shared

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Rules struct {
		Path string `yaml:"path"` // "./configuration/rules.json"
	} `yaml:"rules"`

	Reference struct {
		Names string `yaml:"names"` // countryish-names CSV; empty = embedded table
		Rates string `yaml:"rates"` // exchange-rate CSV; empty = no conversion
	} `yaml:"reference"`

	Classifier struct {
		MinJurisdictions int `yaml:"min_jurisdictions"` // 3
		MinTerms         int `yaml:"min_terms"`         // 3
	} `yaml:"classifier"`

	Database struct {
		Driver string `yaml:"driver"` // "sqlite" (default)
		DSN    string `yaml:"dsn"`    // "./cbcnorm.db"
	} `yaml:"database"`

	Reporting struct {
		OutDir string `yaml:"out_dir"` // "./reports"
	} `yaml:"reporting"`

	Logging LoggingConfig `yaml:"logging"`

	Server struct {
		Addr           string   `yaml:"addr"`            // ":8787"
		SessionHours   int      `yaml:"session_hours"`   // 12
		AllowedOrigins []string `yaml:"allowed_origins"` // ["*"]
	} `yaml:"server"`
}

type LoggingConfig struct {
	Format string `yaml:"format"` // "json"|"text"
	Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
}

func DefaultConfig() Config {
	var c Config
	c.Rules.Path = "./configuration/rules.json"
	c.Classifier.MinJurisdictions = 3
	c.Classifier.MinTerms = 3
	c.Database.Driver = "sqlite"
	c.Database.DSN = "./cbcnorm.db"
	c.Reporting.OutDir = "./reports"
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	c.Server.Addr = ":8787"
	c.Server.SessionHours = 12
	c.Server.AllowedOrigins = []string{"*"}
	return c
}

func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	// Env overrides (simple, explicit)
	if v := os.Getenv("CBCNORM_RULES_PATH"); v != "" {
		c.Rules.Path = v
	}
	if v := os.Getenv("CBCNORM_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("CBCNORM_OUT_DIR"); v != "" {
		c.Reporting.OutDir = v
	}
	if v := os.Getenv("CBCNORM_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("CBCNORM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CBCNORM_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CBCNORM_MIN_JURISDICTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Classifier.MinJurisdictions = n
		}
	}
	if v := os.Getenv("CBCNORM_MIN_TERMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Classifier.MinTerms = n
		}
	}
	return c, nil
}
