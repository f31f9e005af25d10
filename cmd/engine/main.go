package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	engine "github.com/ShipChain/engine-sub001"
	"github.com/ShipChain/engine-sub001/internal/config"
	"github.com/ShipChain/engine-sub001/pkg/logging"
	"github.com/ShipChain/engine-sub001/pkg/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	conf := config.Default()
	if *configPath != "" {
		var err error
		conf, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	log := logging.New(conf.LogLevel)

	walletDriver, err := storage.NewBadgerDriver(storage.BadgerConfig{
		Path:   conf.WalletPath,
		Logger: log,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to open wallet store")
	}
	defer walletDriver.Close()

	eng, err := engine.New(engine.Config{
		WalletDriver: walletDriver,
		Logger:       log,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to build engine")
	}

	for _, sc := range conf.Storage {
		driver, err := openDriver(sc, log)
		if err != nil {
			log.WithError(err).WithField("storage", sc.ID).Fatal("failed to open storage driver")
		}
		eng.RegisterStorage(sc.ID, driver)
		log.WithFields(logrus.Fields{
			"storage": sc.ID,
			"driver":  sc.Driver,
		}).Info("storage registered")
	}

	addr := fmt.Sprintf("%s:%d", conf.Host, conf.Port)
	log.WithField("addr", addr).Info("engine listening")
	if err := http.ListenAndServe(addr, eng.RPCHandler()); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func openDriver(sc config.StorageConfig, log *logrus.Logger) (storage.Driver, error) {
	switch sc.Driver {
	case "memory":
		return storage.NewMemoryDriver(), nil
	case "badger", "":
		return storage.NewBadgerDriver(storage.BadgerConfig{Path: sc.Path, Logger: log})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
}
