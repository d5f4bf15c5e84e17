package pingserver

import (
	"context"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jpillora/requestlog"

	"github.com/probeworks/pingd/server/instructions"
	"github.com/probeworks/pingd/server/telemetry"
	"github.com/probeworks/pingd/share"
	"github.com/probeworks/pingd/share/logger"
)

// Store is the persistence surface the handlers depend on.
type Store interface {
	UpsertClient(ctx context.Context, info telemetry.DeviceInfo) (string, error)
	RecordHeartbeat(ctx context.Context, hb telemetry.Heartbeat) (*instructions.Instruction, error)
	StoreSession(ctx context.Context, s telemetry.Session) error
	GetClientStats(ctx context.Context, clientID string) (*telemetry.ClientStats, error)
	ListClientStats(ctx context.Context) ([]telemetry.ClientStats, error)
	GetLocationStats(ctx context.Context) (*telemetry.LocationStats, error)
	Close() error
}

// APIListener serves the REST API. It owns the router and the HTTP server;
// the store is constructed once and passed in, never reached globally.
type APIListener struct {
	*logger.Logger

	config            *Config
	store             Store
	selector          *instructions.Selector
	router            *mux.Router
	httpServer        *share.HTTPServer
	requestLogOptions *requestlog.Options
}

// NewAPIListener wires the store, optional instruction selector and router.
// The selector is nil unless instruction pushing is enabled; in that mode the
// location-statistics endpoint is not exposed.
func NewAPIListener(config *Config, store Store, selector *instructions.Selector, l *logger.Logger) *APIListener {
	al := &APIListener{
		Logger:            l.Fork("api-listener"),
		config:            config,
		store:             store,
		selector:          selector,
		httpServer:        share.NewHTTPServer(l),
		requestLogOptions: config.InitRequestLogOptions(),
	}
	al.initRouter()
	return al
}

type recoveryLogger struct {
	*logger.Logger
}

func (l *recoveryLogger) Println(v ...interface{}) {
	l.Errorf("%v", v)
}

// Start begins serving the API on the configured port.
func (al *APIListener) Start() error {
	h := handlers.RecoveryHandler(
		handlers.PrintRecoveryStack(true),
		handlers.RecoveryLogger(&recoveryLogger{al.Logger}),
	)(al.router)
	h = requestlog.WrapWith(h, *al.requestLogOptions)

	addr := al.config.ListenAddress()
	if err := al.httpServer.GoListenAndServe(addr, h); err != nil {
		return err
	}
	al.Infof("REST API listening on %s", addr)
	return nil
}

func (al *APIListener) Wait() error {
	return al.httpServer.Wait()
}

func (al *APIListener) Close() error {
	return al.httpServer.Close()
}
