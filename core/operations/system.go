/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package operations serves the HTTP endpoints used to observe a running
// chaincode: /metrics when the prometheus provider is selected and
// /healthz.
package operations

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hyperledger/fabric-chaincode-shim/common/flogging"
	"github.com/hyperledger/fabric-chaincode-shim/common/metrics"
	"github.com/hyperledger/fabric-chaincode-shim/common/metrics/disabled"
	"github.com/hyperledger/fabric-chaincode-shim/common/metrics/prometheus"
	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Logger interface {
	Warnf(template string, args ...interface{})
	Infof(template string, args ...interface{})
}

type Options struct {
	ListenAddress string
	// MetricsProvider is "prometheus" or "disabled".
	MetricsProvider string
	TLS             TLS
	Version         string
	Logger          Logger
}

// System owns the metrics provider of the process and the HTTP server
// exposing it.
type System struct {
	metrics.Provider

	logger       Logger
	options      Options
	registry     *prom.Registry
	versionGauge metrics.Gauge

	mutex    sync.Mutex
	server   *http.Server
	listener net.Listener
}

var versionGaugeOpts = metrics.GaugeOpts{
	Namespace:    "chaincode",
	Name:         "info",
	Help:         "The active version of the chaincode process.",
	LabelNames:   []string{"version"},
}

func NewSystem(o Options) (*System, error) {
	logger := o.Logger
	if logger == nil {
		logger = flogging.MustGetLogger("operations.runner")
	}
	s := &System{logger: logger, options: o}

	switch o.MetricsProvider {
	case "prometheus":
		s.registry = prom.NewRegistry()
		s.registry.MustRegister(collectors.NewGoCollector())
		s.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		s.Provider = &prometheus.Provider{Registerer: s.registry}
	case "disabled", "":
		s.Provider = &disabled.Provider{}
	default:
		return nil, errors.Errorf("unknown metrics provider %q", o.MetricsProvider)
	}
	s.versionGauge = s.Provider.NewGauge(versionGaugeOpts)
	return s, nil
}

func (s *System) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"OK"}`))
	})
	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start binds ListenAddress and serves in the background. It does nothing
// when no address is configured.
func (s *System) Start() error {
	s.versionGauge.With("version", s.options.Version).Set(1)
	if s.options.ListenAddress == "" {
		return nil
	}

	tlsConfig, err := s.options.TLS.Config()
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", s.options.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.options.ListenAddress)
	}
	if tlsConfig != nil {
		lis = tls.NewListener(lis, tlsConfig)
	}

	server := &http.Server{
		Handler:      s.handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}
	s.mutex.Lock()
	s.server, s.listener = server, lis
	s.mutex.Unlock()

	go func() {
		if err := server.Serve(lis); err != nil && err != http.ErrServerClosed {
			s.logger.Warnf("operations server stopped: %s", err)
		}
	}()
	s.logger.Infof("Operations endpoint listening on %s", lis.Addr())
	return nil
}

// Addr returns the bound address, or "" when not serving.
func (s *System) Addr() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *System) Stop() error {
	s.mutex.Lock()
	server := s.server
	s.server, s.listener = nil, nil
	s.mutex.Unlock()
	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
