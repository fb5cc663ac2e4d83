package config

// JWTConfig holds the key used to verify bearer tokens. Tokens are issued
// elsewhere; "sub" must carry the user id and "email" the mailbox address.
type JWTConfig struct {
	Secret string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
}
