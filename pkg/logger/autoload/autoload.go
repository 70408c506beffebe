// Package autoload initializes the global logger from the LOG_* environment
// on blank import.
package autoload

import (
	configx "github.com/wayfarer-agent/wayfarer/pkg/config"
	logx "github.com/wayfarer-agent/wayfarer/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
