package config

// JWTConfig holds token signing configuration.
type JWTConfig struct {
	Secret   string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer   string `env:"JWT_ISSUER" env-default:"tavernkeep"`
	Audience string `env:"JWT_AUDIENCE" env-default:"tavernkeep-api"`
}
