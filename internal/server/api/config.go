package api

// ServerConfig represents the control API configuration.
type ServerConfig struct {
	Addr string `help:"Control API listen address" default:":3261" env:"REPLAYPAD_API_ADDR"`
	// Password protects the API with an authenticated, encrypted session.
	// Populated from the key file by the serve command, never from flags.
	Password string `kong:"-"`
}
