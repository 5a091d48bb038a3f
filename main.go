package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Siyun/carbondata/crdb"
	"github.com/Siyun/carbondata/datastore"
	"github.com/Siyun/carbondata/dictionary"
	"github.com/Siyun/carbondata/gologger"
	"github.com/Siyun/carbondata/http_server"
	"github.com/Siyun/carbondata/metastore"
	"github.com/Siyun/carbondata/migrations"
	"github.com/Siyun/carbondata/utils"
)

var logger = gologger.NewLogger()

func main() {
	logger.Debug().Msg("starting carbondata repartition service")

	if err := crdb.ConnectToDB(); err != nil {
		logger.Error().Err(err).Msg("error connecting to CRDB")
		os.Exit(1)
	}

	err := migrations.CheckMigrations(utils.CRDB_DSN)
	if err != nil {
		logger.Error().Err(err).Msg("Error checking migrations")
		os.Exit(1)
	}

	ms, err := metastore.NewCRDBMetaStore(crdb.PGPool)
	if err != nil {
		logger.Error().Err(err).Msg("error creating metastore")
		os.Exit(1)
	}

	var ds datastore.DataStore
	if utils.S3_BUCKET_NAME != "" {
		ds, err = datastore.NewS3DataStore()
	} else {
		ds, err = datastore.NewDiskDataStore(utils.DATA_DIR)
	}
	if err != nil {
		logger.Error().Err(err).Msg("error creating datastore")
		os.Exit(1)
	}

	dict, err := dictionary.NewRedisStore(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("error creating dictionary store")
		os.Exit(1)
	}

	httpServer := http_server.StartHTTPServer(ms, ds, dict)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Warn().Msg("received shutdown signal!")

	// For AWS ALB needing some time to de-register pod
	// Convert the time to seconds
	sleepTime := utils.GetEnvOrDefaultInt("SHUTDOWN_SLEEP_SEC", 0)
	logger.Info().Msg(fmt.Sprintf("sleeping for %ds before exiting", sleepTime))

	time.Sleep(time.Second * time.Duration(sleepTime))
	logger.Info().Msg(fmt.Sprintf("slept for %ds, exiting", sleepTime))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown HTTP server")
	} else {
		logger.Info().Msg("successfully shutdown HTTP server")
	}

	if err := dict.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown dictionary store")
	}
	if err := ds.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown datastore")
	}
	if err := ms.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown metastore")
	}
}
