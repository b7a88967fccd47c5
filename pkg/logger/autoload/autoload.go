// Package autoload initializes the global logger from environment config.
// Import for side effect:
//
//	import _ "github.com/lucy-fin/lucy-agent/pkg/logger/autoload"
package autoload

import (
	configx "github.com/lucy-fin/lucy-agent/pkg/config"
	logx "github.com/lucy-fin/lucy-agent/pkg/logger"
)

func init() {
	cfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*cfg)
}
