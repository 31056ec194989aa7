// Package node handles the lifecycle of the runtime services in a user bot
// process, gracefully shutting everything down upon close.
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
	"github.com/filegate/filegate/entitlement"
	"github.com/filegate/filegate/gateway/telegram"
	"github.com/filegate/filegate/membership"
	"github.com/filegate/filegate/monitoring/gauges"
	"github.com/filegate/filegate/monitoring/prometheus"
	"github.com/filegate/filegate/runtime"
	"github.com/filegate/filegate/runtime/version"
	"github.com/filegate/filegate/shortlink"
	"github.com/filegate/filegate/userbot/bot"
	"github.com/filegate/filegate/userbot/flags"
	"github.com/filegate/filegate/verification"
)

var log = logrus.WithField("prefix", "node")

// UserBotNode owns every service of a user bot process.
type UserBotNode struct {
	cliCtx   *cli.Context
	services *runtime.ServiceRegistry
	store    db.Database
	engine   *entitlement.Engine
	lock     sync.RWMutex
	stop     chan struct{}
}

// New creates a user bot node from cli flags, registering services in
// dependency order.
func New(cliCtx *cli.Context) (*UserBotNode, error) {
	if cliCtx.IsSet(cmd.TuningFileFlag.Name) {
		if err := params.LoadFromFile(cliCtx.String(cmd.TuningFileFlag.Name)); err != nil {
			return nil, err
		}
	}

	registry := runtime.NewServiceRegistry()
	node := &UserBotNode{
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

	adapter, err := telegram.New(cliCtx.String(flags.BotTokenFlag.Name))
	if err != nil {
		return nil, err
	}

	resolver := settings.NewResolver(store)
	checker := membership.NewChecker(adapter)
	tokens := verification.NewManager(store, resolver)
	links := shortlink.NewClient(resolver)

	engine, err := entitlement.NewEngine(store, adapter, checker, tokens, links, resolver, entitlement.Config{
		BotUsername: adapter.Username(),
		WebBaseURL:  cliCtx.String(flags.WebBaseURLFlag.Name),
	})
	if err != nil {
		return nil, err
	}
	node.engine = engine

	if err := registry.RegisterService(bot.New(adapter, adapter, engine, resolver)); err != nil {
		return nil, err
	}
	if err := registry.RegisterService(gauges.NewService(store)); err != nil {
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

// Start every service in the user bot.
func (n *UserBotNode) Start() {
	n.lock.Lock()

	log.WithFields(logrus.Fields{
		"version": version.Version(),
	}).Info("Starting user bot node")

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
		panic("Panic closing the user bot node")
	}()

	// Wait for stop channel to be closed.
	<-stop
}

// Close handles graceful shutdown of the system.
func (n *UserBotNode) Close() {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.services.StopAll()
	n.engine.Close()
	if err := n.store.Close(); err != nil {
		log.WithError(err).Error("Could not close store")
	}
	log.Info("Stopping user bot")

	close(n.stop)
}
