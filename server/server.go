// Package pingserver is the telemetry-ingestion backend for the mobile ping
// app: clients register, heartbeat, and upload completed measurement
// sessions over a small REST API backed by sqlite.
package pingserver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/probeworks/pingd/server/instructions"
	"github.com/probeworks/pingd/server/telemetry"
	"github.com/probeworks/pingd/server/udpecho"
	"github.com/probeworks/pingd/share/logger"
)

// Server bundles the REST API listener, the telemetry store and the optional
// UDP echo responder.
type Server struct {
	config *Config
	logger *logger.Logger
	store  *telemetry.SqliteProvider
	api    *APIListener
	udp    *udpecho.Server
}

func NewServer(config *Config) (*Server, error) {
	l := logger.NewLogger("server", config.Logging.LogOutput, config.Logging.LogLevel)

	var selector *instructions.Selector
	if config.Instructions.Enabled {
		var err error
		selector, err = instructions.NewSelectorFromConfig(config.Instructions)
		if err != nil {
			return nil, err
		}
		l.Infof("instruction push enabled with %d instruction(s)", len(selector.Instructions()))
	}

	store, err := telemetry.NewSqliteProvider(
		config.Server.DBPath,
		config.GetSQLiteDataSourceOptions(),
		selector,
		l.Fork("store"),
	)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config: config,
		logger: l,
		store:  store,
		api:    NewAPIListener(config, store, selector, l),
	}
	if config.Server.UDPAddr != "" {
		s.udp = udpecho.New(config.Server.UDPAddr, l)
	}
	return s, nil
}

// Run starts the listeners and blocks until one of them stops.
func (s *Server) Run() error {
	g, ctx := errgroup.WithContext(context.Background())

	if err := s.api.Start(); err != nil {
		return err
	}
	g.Go(s.api.Wait)

	if s.udp != nil {
		g.Go(func() error { return s.udp.Serve(ctx) })
	}

	return g.Wait()
}

func (s *Server) Close() error {
	if err := s.api.Close(); err != nil {
		s.logger.Errorf("error closing API listener: %v", err)
	}
	return s.store.Close()
}
