package stamps

import "go.uber.org/zap"

// New returns a production logger for env "production", development otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
