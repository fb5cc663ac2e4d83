package config

import "fmt"

// DatabaseConfig holds PostgreSQL connection settings for the record store
type DatabaseConfig struct {
	Host     string `env:"MFA_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"MFA_PG_PORT" env-default:"5432"`
	Database string `env:"MFA_PG_DATABASE" env-default:"mfa_db"`
	User     string `env:"MFA_PG_USER" env-default:"mfa"`
	Password string `env:"MFA_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"MFA_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}
