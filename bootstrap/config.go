package bootstrap

import (
	"github.com/kbukum/rxkit/config"
)

// Config is the interface constraint for application configuration types.
// *config.ServiceConfig satisfies it, as does any struct embedding
// config.ServiceConfig.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
