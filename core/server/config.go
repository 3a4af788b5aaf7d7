package server

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// County identifies the county profile the source queries target.
	County string `mapstructure:"county" default:"benton"`
}

// Known county profiles.
const (
	CountyBenton     = "benton"
	CountyFranklin   = "franklin"
	CountyWallaWalla = "wallawalla"
)

// IsValidCounty checks if the configured county profile is known.
func (c Config) IsValidCounty() bool {
	switch c.County {
	case CountyBenton, CountyFranklin, CountyWallaWalla:
		return true
	default:
		return false
	}
}
