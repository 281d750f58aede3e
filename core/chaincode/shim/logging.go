/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim

import (
	"io"
	"os"
	"sync"

	"github.com/hyperledger/fabric-chaincode-shim/common/flogging"
	"github.com/hyperledger/fabric-chaincode-shim/common/flogging/fabenc"
)

const defaultLogLevel = "info"

var (
	chaincodeLogger = flogging.MustGetLogger("shim")
	loggingSetup    sync.Once
)

// NewLogger returns a logger that follows the chaincode logging
// configuration.
func NewLogger(name string) *flogging.FabricLogger {
	return flogging.MustGetLogger(name)
}

// IsEnabledForLogLevel reports whether the shim logger writes entries at
// logLevel.
func IsEnabledForLogLevel(logLevel string) bool {
	if !flogging.IsValidLevel(logLevel) {
		return false
	}
	return chaincodeLogger.IsEnabledFor(flogging.NameToLevel(logLevel))
}

// SetupChaincodeLogging configures logging from the CORE_CHAINCODE_LOGGING_*
// environment. Only the first call has an effect.
func SetupChaincodeLogging() {
	v := NewViper()
	for _, key := range []string{"chaincode.logging.level", "chaincode.logging.shim", "chaincode.logging.format"} {
		v.SetDefault(key, configDefaults[key])
	}
	setupLoggingOnce(LoggingConfig{
		Level:  v.GetString("chaincode.logging.level"),
		Shim:   v.GetString("chaincode.logging.shim"),
		Format: v.GetString("chaincode.logging.format"),
	})
}

func setupLoggingOnce(c LoggingConfig) {
	loggingSetup.Do(func() { applyLogging(c, os.Stderr) })
}

// applyLogging activates c on the global logging system. Invalid values are
// reported and replaced by their defaults.
func applyLogging(c LoggingConfig, w io.Writer) {
	var warnings []string

	spec := c.Level
	if spec == "" {
		spec = defaultLogLevel
	} else if !validSpec(spec) {
		warnings = append(warnings, "invalid chaincode log level '"+spec+"', defaulting to "+defaultLogLevel)
		spec = defaultLogLevel
	}

	if c.Shim != "" {
		if flogging.IsValidLevel(c.Shim) {
			spec = "shim=" + c.Shim + ":" + spec
		} else {
			warnings = append(warnings, "invalid shim log level '"+c.Shim+"' ignored")
		}
	}

	format := c.Format
	if !validFormat(format) {
		warnings = append(warnings, "invalid log format '"+format+"', using the default format")
		format = ""
	}

	flogging.Init(flogging.Config{Format: format, LogSpec: spec, Writer: w})
	for _, w := range warnings {
		chaincodeLogger.Warning(w)
	}
	chaincodeLogger.Debugf("Chaincode logging spec is %s", spec)
}

func validFormat(format string) bool {
	if format == "json" {
		return true
	}
	_, err := fabenc.ParseFormat(format)
	return err == nil
}

func validSpec(spec string) bool {
	return (&flogging.LoggerLevels{}).ActivateSpec(spec) == nil
}
