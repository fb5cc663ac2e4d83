// Package config holds the env-tagged settings of the simple-mfa service.
//
// Structs are read with cleanenv, after an optional .env file has been
// loaded with godotenv:
//
//	type Config struct {
//	    Database  config.DatabaseConfig
//	    Redis     config.RedisConfig
//	    Email     config.EmailConfig
//	    Telegram  config.TelegramConfig
//	    TwoFactor config.TwoFactorConfig
//	}
//
//	var cfg Config
//	if err := cleanenv.ReadEnv(&cfg); err != nil { ... }
//	if err := cfg.TwoFactor.Validate(); err != nil { ... }
//
// The GetEnv* helpers read single variables with a default for code that
// does not go through cleanenv.
//
// # Variables
//
//   - MFA_PG_*: PostgreSQL record store
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REDIS_KEY_PREFIX: code store
//   - EMAIL_*: SMTP for the mailbox method
//   - TELEGRAM_*: bot token, username and webhook secret
//   - TWOFA_*: issuer, code lifetimes, store selection
//   - RATELIMIT_*: limits on the send and verify routes
//   - JWT_SECRET: HS256 key for bearer tokens
package config
