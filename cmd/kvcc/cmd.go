/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"runtime"

	"github.com/hyperledger/fabric-chaincode-shim/common/flogging"
	floggingmetrics "github.com/hyperledger/fabric-chaincode-shim/common/flogging/metrics"
	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim"
	"github.com/hyperledger/fabric-chaincode-shim/core/operations"
	"github.com/hyperledger/fabric-chaincode-shim/examples/chaincode/go/kvstore"
	"github.com/hyperledger/fabric-chaincode-shim/examples/chaincode/go/passthru"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const programName = "kvcc"

// Version is set at link time.
var Version = "development build"

var logger = flogging.MustGetLogger(programName)

var chaincodes = map[string]func() shim.Chaincode{
	"kvstore":  func() shim.Chaincode { return &kvstore.KVStore{} },
	"passthru": func() shim.Chaincode { return &passthru.Passthru{} },
}

func newRootCmd() *cobra.Command {
	v := shim.NewViper()
	var ccName string

	root := &cobra.Command{
		Use:           programName,
		Short:         "Run an example chaincode.",
		Long:          "Run an example chaincode against a peer, either by dialing it or by serving connections from it.",
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&ccName, "chaincode", "kvstore", "Chaincode to run: kvstore or passthru")
	root.PersistentFlags().String("id", "", "Chaincode id registered with the peer")
	root.PersistentFlags().Int("max-concurrency", 0, "Maximum number of concurrently executing transactions, 0 for no limit")
	root.PersistentFlags().String("metrics-provider", "", "Metrics provider: prometheus or disabled")
	root.PersistentFlags().String("operations-address", "", "Address of the operations endpoint")
	bindFlag(v, root.PersistentFlags(), "id", "chaincode.id.name")
	bindFlag(v, root.PersistentFlags(), "max-concurrency", "chaincode.maxconcurrency")
	bindFlag(v, root.PersistentFlags(), "metrics-provider", "metrics.provider")
	bindFlag(v, root.PersistentFlags(), "operations-address", "metrics.listenaddress")

	root.AddCommand(
		startCmd(v, &ccName),
		serveCmd(v, &ccName),
		versionCmd(),
	)
	return root
}

// bindFlag makes the flag named name override the configuration key.
func bindFlag(v *viper.Viper, flags *pflag.FlagSet, name, key string) {
	if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(err)
	}
}

// prepare loads the configuration and starts the operations endpoint. The
// caller stops the returned system.
func prepare(cmd *cobra.Command, v *viper.Viper, ccName string) (*shim.Config, shim.Chaincode, *operations.System, error) {
	newCC, ok := chaincodes[ccName]
	if !ok {
		return nil, nil, nil, errors.Errorf("unknown chaincode %q", ccName)
	}
	config, err := shim.LoadConfig(v)
	if err != nil {
		return nil, nil, nil, err
	}
	cmd.SilenceUsage = true
	shim.SetupChaincodeLogging()

	ops, err := operations.NewSystem(operations.Options{
		ListenAddress:   config.Metrics.ListenAddress,
		MetricsProvider: config.Metrics.Provider,
		Version:         Version,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	flogging.SetObserver(floggingmetrics.NewObserver(ops))
	if err := ops.Start(); err != nil {
		return nil, nil, nil, err
	}
	return config, newCC(), ops, nil
}

func startCmd(v *viper.Viper, ccName *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Dial the peer and run the chaincode.",
		Long:  "Dial the peer at peer.address, register the chaincode and run it until the connection ends.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, cc, ops, err := prepare(cmd, v, *ccName)
			if err != nil {
				return err
			}
			defer ops.Stop()

			logger.Infof("Starting chaincode %s against %s", config.Chaincode.ID.Name, config.Peer.Address)
			config.MetricsProvider = ops
			err = shim.StartWithConfig(cmd.Context(), config, cc)
			if errors.Is(err, shim.ErrShutdown) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().String("peer-address", "", "Address of the peer")
	bindFlag(v, cmd.Flags(), "peer-address", "peer.address")
	return cmd
}

func serveCmd(v *viper.Viper, ccName *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chaincode to connecting peers.",
		Long:  "Listen on chaincode.server.address and run the chaincode for every peer that connects.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, cc, ops, err := prepare(cmd, v, *ccName)
			if err != nil {
				return err
			}
			defer ops.Stop()

			server, err := config.NewChaincodeServer(cc)
			if err != nil {
				return err
			}
			server.MetricsProvider = ops
			if err := server.Listen(); err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()
			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
				logger.Infof("Stopping chaincode server on %s", server.ListenAddress())
				server.Stop()
				<-errCh
				return nil
			}
		},
	}
	cmd.Flags().String("listen-address", "", "Address to listen on for peer connections")
	bindFlag(v, cmd.Flags(), "listen-address", "chaincode.server.address")
	cmd.Flags().Int("max-connections", 0, "Maximum number of peer connections served at once")
	bindFlag(v, cmd.Flags(), "max-connections", "chaincode.server.maxconnections")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kvcc version.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s:\n Version: %s\n Go version: %s\n OS/Arch: %s/%s\n",
				programName, Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
