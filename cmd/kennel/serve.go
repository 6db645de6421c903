package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"google.golang.org/grpc"

	"kennel/api/attr"
	"kennel/api/grpcserver"
	"kennel/config"
	"kennel/infra/journal"
	"kennel/infra/kafka"
	"kennel/infra/logging"
	"kennel/infra/metrics"
	"kennel/jobs/broadcaster"
	"kennel/service"
)

func makeServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the kennel until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, unix.SIGTERM)
			defer stop()
			return serve(ctx, cfg, os.Stderr)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	log, err := logging.New(logOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	m := metrics.New()

	// ---------------- Journal / Broadcaster ----------------

	var events service.EventSink
	if cfg.Journal.Dir != "" {
		j, err := journal.Open(cfg.Journal.Dir)
		if err != nil {
			return err
		}
		defer j.Close()

		pub, err := newPublisher(cfg.Kafka)
		if err != nil {
			return err
		}
		bc, err := broadcaster.New(j, pub, broadcaster.Config{
			Interval:  cfg.Journal.Interval,
			QueueSize: cfg.Journal.QueueSize,
		}, m, logging.Component(log, "broadcaster"))
		if err != nil {
			if pub != nil {
				_ = pub.Close()
			}
			return err
		}
		bc.Start()
		defer bc.Close()
		events = bc
	}

	// ---------------- Kennel ----------------

	k := service.New(service.Options{
		EvictionInterval: cfg.Eviction.Interval,
		ReclaimInterval:  cfg.Reclaim.Interval,
		Events:           events,
		Metrics:          m,
		Logger:           logging.Component(log, "kennel"),
	})
	defer k.Close()

	// ---------------- gRPC ----------------

	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(
		grpcserver.LoggingInterceptor(logging.Component(log, "grpc")),
	))
	var lis net.Listener
	err = k.Start(func(k *service.Kennel) error {
		grpcserver.Register(grpcSrv, grpcserver.NewServer(
			attr.New(k, m, logging.Component(log, "attr")),
		))
		if cfg.GRPC.Addr == "" {
			return nil
		}
		var err error
		lis, err = net.Listen("tcp", cfg.GRPC.Addr)
		return err
	})
	if err != nil {
		return err
	}

	// ---------------- Serve ----------------

	g, gctx := errgroup.WithContext(ctx)
	if lis != nil {
		log.Info().Str("addr", lis.Addr().String()).Msg("kennel gRPC listening")
		g.Go(func() error {
			if err := grpcSrv.Serve(lis); !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
	}

	var httpSrv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		httpSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		g.Go(func() error {
			if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		grpcSrv.GracefulStop()
		if httpSrv != nil {
			return httpSrv.Shutdown(context.Background())
		}
		return nil
	})

	err = g.Wait()
	log.Info().Msg("kennel shutting down")
	return err
}

func newPublisher(cfg config.Kafka) (broadcaster.Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	switch cfg.Client {
	case config.ClientKafkaGo:
		return kafka.NewProducer(cfg.Brokers, cfg.Topic), nil
	default:
		p, err := kafka.NewSaramaPublisher(cfg.Brokers, cfg.Topic)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}
