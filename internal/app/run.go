package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"airquality-dashboard/internal/config"
	"airquality-dashboard/internal/db"
	"airquality-dashboard/internal/db/migrate"
	"airquality-dashboard/internal/httpapi"
	"airquality-dashboard/internal/modules/airquality"
	"airquality-dashboard/internal/modules/airquality/repository"
	"airquality-dashboard/internal/modules/airquality/service"
	"airquality-dashboard/internal/modules/airquality/source"
	"airquality-dashboard/internal/modules/airquality/views"
	"airquality-dashboard/internal/mqtt"
)

var errMQTTDisconnected = errors.New("mqtt not connected")

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"dataSource", cfg.DataSource,
		"dataPath", cfg.DataPath,
		"dataWatch", cfg.DataWatch,
		"reloadInterval", cfg.ReloadInterval,
		"dbDriver", cfg.DBDriver,
		"sqlitePath", cfg.SQLitePath,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	var (
		dbConn *sql.DB
		repo   repository.ObservationRepository
	)
	if cfg.NeedsDB() {
		conn, closeDB, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeDB()
		dbConn = conn
		repo = repository.NewRepository(conn)
	}

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	src, stopSource, err := startSource(ctx, cfg, repo, logger)
	if err != nil {
		return err
	}
	defer stopSource()

	svc := service.NewService(src, repo, logger)

	var (
		subscriber *mqtt.Subscriber
		attach     mqtt.MessageSubscriber
	)
	if cfg.MQTTEnabled() {
		subscriber, err = mqtt.NewSubscriber(cfg, logger)
		if err != nil {
			return err
		}
		attach = subscriber
	}

	checks := []httpapi.Check{{
		Name: "dataset",
		Check: func(context.Context) error {
			return src.Snapshot().Err
		},
	}}
	if subscriber != nil {
		checks = append(checks, httpapi.Check{
			Name: "mqtt",
			Check: func(context.Context) error {
				if !subscriber.IsConnected() {
					return errMQTTDisconnected
				}
				return nil
			},
		})
	}
	mux := httpapi.NewMux(dbConn, cfg.StaticDir, checks...)

	// the broker may deliver queued messages right after CONNACK, so the
	// handler is attached before Connect
	if err := airquality.RegisterFeature(mux, svc, attach, logger); err != nil {
		return err
	}

	if subscriber != nil {
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg.HTTPAddr, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		logger.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// openStore opens the database and applies pending migrations.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sql.DB, func(), error) {
	conn, err := db.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(conn); err != nil {
			logger.Error("db close", "error", err)
		}
	}

	applied, err := migrate.Run(ctx, conn)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	logger.Info("database ready", "migrationsApplied", applied)
	return conn, closeDB, nil
}

// startSource performs the first load and starts the refresh loop for the
// configured source. A failed first load is served as an error snapshot.
func startSource(ctx context.Context, cfg config.Config, repo repository.ObservationRepository, logger *slog.Logger) (source.Source, func(), error) {
	switch cfg.DataSource {
	case config.SourceSQLite:
		src := source.NewStoreSource(repo, logger)
		if err := src.Reload(ctx); err != nil {
			logger.Warn("initial dataset load failed", "source", src.Name(), "error", err)
		}
		stop, err := src.Schedule(ctx, cfg.ReloadInterval)
		if err != nil {
			return nil, nil, err
		}
		return src, stop, nil

	default:
		src := source.NewFileSource(cfg.DataPath, logger)
		if err := src.Reload(ctx); err != nil {
			logger.Warn("initial dataset load failed", "source", src.Name(), "error", err)
		}
		if !cfg.DataWatch {
			return src, func() {}, nil
		}
		watchCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := src.Watch(watchCtx); err != nil {
				logger.Error("dataset watcher stopped", "path", cfg.DataPath, "error", err)
			}
		}()
		return src, func() {
			cancel()
			<-done
		}, nil
	}
}

// Migrate applies pending migrations and exits.
func Migrate(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	_, closeDB, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	closeDB()
	return nil
}

// Import loads a CSV file into the observation store.
func Import(ctx context.Context, cfg config.Config, logger *slog.Logger, path string) error {
	conn, closeDB, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	svc := service.NewService(source.NewFileSource(path, logger), repository.NewRepository(conn), logger)
	res, err := svc.Import(ctx, path)
	if err != nil {
		return err
	}
	logger.Info("imported observations",
		"path", path,
		"rowsRead", res.Report.RowsRead,
		"dropped", res.Report.Dropped,
		"written", res.Written,
		"inserted", res.Inserted,
		"replaced", res.Replaced,
	)
	return nil
}

// Replay publishes the rows of a CSV file to the configured MQTT topic.
func Replay(ctx context.Context, cfg config.Config, logger *slog.Logger, path string, interval time.Duration) error {
	if !cfg.MQTTEnabled() {
		return errors.New("replay needs MQTT_BROKER")
	}
	publisher, err := mqtt.NewPublisher(cfg, logger)
	if err != nil {
		return err
	}
	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	err = publisher.Connect(connectCtx)
	connectCancel()
	if err != nil {
		return err
	}
	defer publisher.Disconnect()

	svc := service.NewService(source.NewFileSource(path, logger), nil, logger)
	res, err := svc.Replay(ctx, path, publisher, interval)
	if err != nil {
		return err
	}
	logger.Info("replayed observations",
		"path", path,
		"topic", cfg.MQTTTopic,
		"published", res.Published,
		"skipped", res.Skipped,
	)
	return nil
}
