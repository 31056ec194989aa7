// Package node handles the lifecycle of the runtime services in an admin
// bot process, gracefully shutting everything down upon close.
package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/filegate/filegate/adminbot/bot"
	"github.com/filegate/filegate/adminbot/broadcast"
	"github.com/filegate/filegate/adminbot/flags"
	"github.com/filegate/filegate/cmd"
	"github.com/filegate/filegate/config/params"
	"github.com/filegate/filegate/config/settings"
	"github.com/filegate/filegate/db"
	"github.com/filegate/filegate/gateway/telegram"
	"github.com/filegate/filegate/monitoring/gauges"
	"github.com/filegate/filegate/monitoring/prometheus"
	"github.com/filegate/filegate/runtime"
	"github.com/filegate/filegate/runtime/version"
)

var log = logrus.WithField("prefix", "node")

// AdminBotNode owns every service of an admin bot process.
type AdminBotNode struct {
	cliCtx   *cli.Context
	services *runtime.ServiceRegistry
	store    db.Database
	lock     sync.RWMutex
	stop     chan struct{}
}

// New creates an admin bot node from cli flags, registering services in
// dependency order.
func New(cliCtx *cli.Context) (*AdminBotNode, error) {
	if cliCtx.IsSet(cmd.TuningFileFlag.Name) {
		if err := params.LoadFromFile(cliCtx.String(cmd.TuningFileFlag.Name)); err != nil {
			return nil, err
		}
	}

	adminIDs, err := parseAdminIDs(cliCtx.StringSlice(flags.AdminIDsFlag.Name))
	if err != nil {
		return nil, err
	}

	registry := runtime.NewServiceRegistry()
	node := &AdminBotNode{
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
	runner := broadcast.NewRunner(store, adapter)

	svc := bot.New(bot.Config{
		StorageChatID:   int64(cliCtx.Int(flags.StorageChatFlag.Name)),
		PublicChatID:    int64(cliCtx.Int(flags.PublicChatFlag.Name)),
		AdminIDs:        adminIDs,
		UserBotUsername: cliCtx.String(flags.UserBotUsernameFlag.Name),
	}, adapter, adapter, adapter, store, resolver, runner)
	if err := registry.RegisterService(svc); err != nil {
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

func parseAdminIDs(raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.Errorf("invalid admin id %q", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Start every service in the admin bot.
func (n *AdminBotNode) Start() {
	n.lock.Lock()

	log.WithFields(logrus.Fields{
		"version": version.Version(),
	}).Info("Starting admin bot node")

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
		panic("Panic closing the admin bot node")
	}()

	// Wait for stop channel to be closed.
	<-stop
}

// Close handles graceful shutdown of the system.
func (n *AdminBotNode) Close() {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.services.StopAll()
	if err := n.store.Close(); err != nil {
		log.WithError(err).Error("Could not close store")
	}
	log.Info("Stopping admin bot")

	close(n.stop)
}
