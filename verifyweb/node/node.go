// Package node handles the lifecycle of the runtime services in a
// verification web process, gracefully shutting everything down upon close.
package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/filegate/filegate/cmd"
	"github.com/filegate/filegate/config/params"
	"github.com/filegate/filegate/config/settings"
	"github.com/filegate/filegate/db"
	"github.com/filegate/filegate/monitoring/prometheus"
	"github.com/filegate/filegate/runtime"
	"github.com/filegate/filegate/runtime/version"
	"github.com/filegate/filegate/verification"
	"github.com/filegate/filegate/verifyweb/flags"
	"github.com/filegate/filegate/verifyweb/server"
)

var log = logrus.WithField("prefix", "node")

// WebNode owns every service of a verification web process.
type WebNode struct {
	cliCtx   *cli.Context
	services *runtime.ServiceRegistry
	store    db.Database
	lock     sync.RWMutex
	stop     chan struct{}
}

// New creates a verification web node from cli flags, registering services
// in dependency order.
func New(cliCtx *cli.Context) (*WebNode, error) {
	if cliCtx.IsSet(cmd.TuningFileFlag.Name) {
		if err := params.LoadFromFile(cliCtx.String(cmd.TuningFileFlag.Name)); err != nil {
			return nil, err
		}
	}

	registry := runtime.NewServiceRegistry()
	node := &WebNode{
		cliCtx:   cliCtx,
		services: registry,
		stop:     make(chan struct{}),
	}

	store, err := db.NewDB(context.Background(), &db.Config{
		Addr:     cliCtx.String(cmd.RedisAddrFlag.Name),
		Password: cliCtx.String(cmd.RedisPasswordFlag.Name),
		DB:       cliCtx.Int(cmd.RedisDBFlag.Name),
	})
	if err != nil {
		return nil, err
	}
	node.store = store

	resolver := settings.NewResolver(store)
	tokens := verification.NewManager(store, resolver)

	svc := server.New(&server.Config{
		Host:           cliCtx.String(flags.HTTPHostFlag.Name),
		Port:           cliCtx.Int(flags.HTTPPortFlag.Name),
		BotUsername:    cliCtx.String(flags.BotUsernameFlag.Name),
		AllowedOrigins: cliCtx.StringSlice(flags.CORSOriginsFlag.Name),
	}, tokens)
	if err := registry.RegisterService(svc); err != nil {
		return nil, err
	}
	if !cliCtx.Bool(cmd.DisableMonitoringFlag.Name) {
		addr := fmt.Sprintf("%s:%d",
			cliCtx.String(cmd.MonitoringHostFlag.Name),
			cliCtx.Int(flags.MonitoringPortFlag.Name))
		logrus.AddHook(prometheus.NewLogrusCollector())
		if err := registry.RegisterService(prometheus.NewService(addr, registry)); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// Start every service in the verification web node.
func (n *WebNode) Start() {
	n.lock.Lock()

	log.WithFields(logrus.Fields{
		"version": version.Version(),
	}).Info("Starting verification web node")

	n.services.StartAll()

	stop := n.stop
	n.lock.Unlock()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")
		go n.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic.")
			}
		}
		panic("Panic closing the verification web node")
	}()

	// Wait for stop channel to be closed.
	<-stop
}

// Close handles graceful shutdown of the system.
func (n *WebNode) Close() {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.services.StopAll()
	if err := n.store.Close(); err != nil {
		log.WithError(err).Error("Could not close store")
	}
	log.Info("Stopping verification web node")

	close(n.stop)
}
