/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim

import (
	"encoding/base64"
	"io/ioutil"
	"strings"
	"time"

	"github.com/hyperledger/fabric-chaincode-shim/common/metrics"
	"github.com/hyperledger/fabric-chaincode-shim/core/comm"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the chaincode process configuration. Every key can be set from
// the environment with the CORE prefix, e.g. CORE_PEER_ADDRESS for
// peer.address.
type Config struct {
	Chaincode ChaincodeConfig
	Peer      PeerConfig
	TLS       ClientTLSConfig
	Metrics   MetricsConfig

	// MetricsProvider, when set, records stream and task metrics of the
	// connection to the peer.
	MetricsProvider metrics.Provider `mapstructure:"-"`
}

type ChaincodeConfig struct {
	ID             ChaincodeIDConfig
	MaxConcurrency int
	RequestTimeout time.Duration
	Keepalive      KeepaliveConfig
	Server         ServerConfig
	Logging        LoggingConfig
}

type ChaincodeIDConfig struct {
	Name string
}

type KeepaliveConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// ServerConfig configures the listener used when the peer connects to the
// chaincode.
type ServerConfig struct {
	Address string
	// MaxConnections bounds the peer connections served at once. Zero
	// means no bound.
	MaxConnections int
	TLS            ServerTLSConfig
}

type ServerTLSConfig struct {
	Enabled       bool
	Key           FileConfig
	Cert          FileConfig
	ClientCACerts FileConfig
}

type FileConfig struct {
	File string
	Path string
}

type PeerConfig struct {
	Address string
	TLS     PeerTLSConfig
}

type PeerTLSConfig struct {
	Enabled  bool
	RootCert FileConfig
}

// ClientTLSConfig locates the client key pair the peer issued to the
// chaincode. Both files hold base64 encoded PEM.
type ClientTLSConfig struct {
	Client struct {
		Key  FileConfig
		Cert FileConfig
	}
}

type LoggingConfig struct {
	Level  string
	Shim   string
	Format string
}

type MetricsConfig struct {
	Provider      string
	ListenAddress string
}

var configDefaults = map[string]interface{}{
	"chaincode.id.name":                       "",
	"chaincode.maxconcurrency":                0,
	"chaincode.requesttimeout":                time.Duration(0),
	"chaincode.keepalive.interval":            comm.DefaultKeepaliveOptions.ClientInterval,
	"chaincode.keepalive.timeout":             comm.DefaultKeepaliveOptions.ClientTimeout,
	"chaincode.server.address":                "",
	"chaincode.server.maxconnections":         0,
	"chaincode.server.tls.enabled":            false,
	"chaincode.server.tls.key.file":           "",
	"chaincode.server.tls.cert.file":          "",
	"chaincode.server.tls.clientcacerts.file": "",
	"chaincode.logging.level":                 "info",
	"chaincode.logging.shim":                  "",
	"chaincode.logging.format":                "console",
	"peer.address":                            "",
	"peer.tls.enabled":                        false,
	"peer.tls.rootcert.file":                  "",
	"tls.client.key.path":                     "",
	"tls.client.cert.path":                    "",
	"metrics.provider":                        "disabled",
	"metrics.listenaddress":                   "",
}

// NewViper returns a viper instance reading the CORE environment.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CORE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// LoadConfig decodes the chaincode configuration from v. Unset keys take
// their defaults.
func LoadConfig(v *viper.Viper) (*Config, error) {
	for key, value := range configDefaults {
		v.SetDefault(key, value)
	}

	config := &Config{}
	err := v.Unmarshal(config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, errors.Wrap(err, "error decoding chaincode configuration")
	}

	if config.Chaincode.ID.Name == "" {
		return nil, invalidArgument("chaincode id not provided")
	}
	if config.Chaincode.MaxConcurrency < 0 {
		return nil, invalidArgument("chaincode.maxconcurrency must not be negative")
	}
	if config.Chaincode.RequestTimeout < 0 {
		return nil, invalidArgument("chaincode.requesttimeout must not be negative")
	}
	if config.Chaincode.Server.MaxConnections < 0 {
		return nil, invalidArgument("chaincode.server.maxconnections must not be negative")
	}
	switch config.Metrics.Provider {
	case "prometheus", "disabled":
	default:
		return nil, invalidArgument("unknown metrics provider %q", config.Metrics.Provider)
	}
	return config, nil
}

// Options returns the task manager options the configuration selects.
func (c *Config) Options() []Option {
	return []Option{
		WithMaxConcurrency(c.Chaincode.MaxConcurrency),
		WithRequestTimeout(c.Chaincode.RequestTimeout),
	}
}

func (c *Config) keepaliveOptions() comm.KeepaliveOptions {
	ka := comm.DefaultKeepaliveOptions
	ka.ClientInterval = c.Chaincode.Keepalive.Interval
	ka.ClientTimeout = c.Chaincode.Keepalive.Timeout
	return ka
}

// ClientConfig builds the dial configuration toward peer.address.
func (c *Config) ClientConfig() (comm.ClientConfig, error) {
	if c.Peer.Address == "" {
		return comm.ClientConfig{}, invalidArgument("peer.address not configured, can't connect to peer")
	}

	config := comm.ClientConfig{
		KaOpts:  c.keepaliveOptions(),
		Timeout: comm.DefaultConnectionTimeout,
	}
	if !c.Peer.TLS.Enabled {
		return config, nil
	}

	key, err := readBase64File(c.TLS.Client.Key.Path)
	if err != nil {
		return comm.ClientConfig{}, err
	}
	cert, err := readBase64File(c.TLS.Client.Cert.Path)
	if err != nil {
		return comm.ClientConfig{}, err
	}
	config.SecOpts = comm.SecureOptions{
		UseTLS:            true,
		RequireClientCert: true,
		Key:               key,
		Certificate:       cert,
	}
	if c.Peer.TLS.RootCert.File != "" {
		root, err := ioutil.ReadFile(c.Peer.TLS.RootCert.File)
		if err != nil {
			return comm.ClientConfig{}, errors.Wrapf(err, "error trying to read file content %s", c.Peer.TLS.RootCert.File)
		}
		config.SecOpts.ServerRootCAs = [][]byte{root}
	}
	return config, nil
}

// NewChaincodeServer builds a server listening on chaincode.server.address
// for peer connections.
func (c *Config) NewChaincodeServer(cc Chaincode, opts ...Option) (*ChaincodeServer, error) {
	if c.Chaincode.Server.Address == "" {
		return nil, invalidArgument("chaincode.server.address not configured, can't listen for the peer")
	}

	server := &ChaincodeServer{
		CCID:           c.Chaincode.ID.Name,
		Address:        c.Chaincode.Server.Address,
		CC:             cc,
		TLSProps:       TLSProperties{Disabled: true},
		MaxConnections: c.Chaincode.Server.MaxConnections,
		Options:        append(c.Options(), opts...),
	}
	tlsConf := c.Chaincode.Server.TLS
	if !tlsConf.Enabled {
		return server, nil
	}

	key, err := ioutil.ReadFile(tlsConf.Key.File)
	if err != nil {
		return nil, errors.Wrapf(err, "error trying to read file content %s", tlsConf.Key.File)
	}
	cert, err := ioutil.ReadFile(tlsConf.Cert.File)
	if err != nil {
		return nil, errors.Wrapf(err, "error trying to read file content %s", tlsConf.Cert.File)
	}
	server.TLSProps = TLSProperties{Key: key, Cert: cert}
	if tlsConf.ClientCACerts.File != "" {
		clientCA, err := ioutil.ReadFile(tlsConf.ClientCACerts.File)
		if err != nil {
			return nil, errors.Wrapf(err, "error trying to read file content %s", tlsConf.ClientCACerts.File)
		}
		server.TLSProps.ClientCACerts = clientCA
	}
	return server, nil
}

func readBase64File(path string) ([]byte, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error trying to read file content %s", path)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, errors.Wrapf(err, "error decoding content of %s", path)
	}
	return decoded, nil
}
