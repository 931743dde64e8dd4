// README: API server entrypoint. Wires config, infrastructure, services, and routes.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nosh/internal/config"
	nhttp "nosh/internal/http"
	"nosh/internal/http/handlers"
	"nosh/internal/infra"
	"nosh/internal/maps"
	"nosh/internal/modules/catalog"
	"nosh/internal/modules/dispatch"
	"nosh/internal/modules/driver"
	"nosh/internal/modules/location"
	"nosh/internal/modules/order"
	"nosh/internal/notify"
	"nosh/internal/types"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := infra.NewRedis(cfg.Redis.Addr)
	defer rdb.Close()

	amqpConn, err := infra.NewAMQP(cfg.AMQP.URL)
	if err != nil {
		return err
	}
	defer amqpConn.Close()

	var geocoder dispatch.Geocoder
	if cfg.Maps.APIKey != "" {
		g, err := maps.NewGeocodingService(cfg.Maps.APIKey)
		if err != nil {
			return err
		}
		geocoder = g
	} else {
		log.Warn("geocoding disabled, orders without address coordinates cannot be assigned")
	}

	orderStore := order.NewStore(db)
	driverStore := driver.NewStore(db)
	dispatchStore := dispatch.NewStore(db)
	locationStore := location.NewStore(db, rdb)
	catalogStore := catalog.NewStore(db)

	pool := driver.NewPool(driverStore, locationStore)
	locations := location.NewService(locationStore)
	dispatcher := dispatch.NewService(orderStore, pool, driverStore, dispatchStore, geocoder, cfg.Dispatch, log)
	publisher := notify.NewPublisher(amqpConn)

	orders := order.NewService(
		orderStore,
		catalogStore,
		order.DispatcherFunc(func(ctx context.Context, orderID types.ID) error {
			_, err := dispatcher.AssignDriver(ctx, orderID)
			return err
		}),
		publisher,
		log,
	)

	router := nhttp.NewRouter(nhttp.Handlers{
		Orders:   handlers.NewOrderHandler(orders),
		Dispatch: handlers.NewDispatchHandler(dispatcher, dispatchStore),
		Drivers:  handlers.NewDriverHandler(driverStore, locations),
	}, log)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
