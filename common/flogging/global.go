/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package flogging

import (
	"strings"

	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/grpclog"
)

const defaultLevel = zapcore.InfoLevel

var Global *Logging

func init() {
	logging, err := New(Config{})
	if err != nil {
		panic(err)
	}

	Global = logging
	grpclog.SetLoggerV2(NewGRPCLogger(Global.ZapLogger("grpc")))
}

// Init applies config to the global logging system and panics on failure.
func Init(config Config) {
	if err := Global.Apply(config); err != nil {
		panic(err)
	}
}

// Reset restores the global logging system to its defaults.
func Reset() {
	Global.Apply(Config{})
}

// GetLoggerLevel returns the upper case level name of the named logger.
func GetLoggerLevel(loggerName string) string {
	return strings.ToUpper(Global.Level(loggerName).String())
}

// MustGetLogger returns a logger with the given name and panics if the name
// is invalid.
func MustGetLogger(loggerName string) *FabricLogger {
	return Global.Logger(loggerName)
}

// SetObserver installs observer on the global logging system and returns
// the previous one.
func SetObserver(observer Observer) Observer {
	return Global.SetObserver(observer)
}

// ActivateSpec activates spec on the global logging system and panics if it
// cannot be parsed.
func ActivateSpec(spec string) {
	if err := Global.ActivateSpec(spec); err != nil {
		panic(err)
	}
}
