package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crackserver/config"
	"github.com/ykhdr/crackserver/internal/consul"
	"github.com/ykhdr/crackserver/internal/dictionary"
	"github.com/ykhdr/crackserver/internal/dispatcher"
	"github.com/ykhdr/crackserver/internal/events"
	"github.com/ykhdr/crackserver/internal/hashcrack"
	"github.com/ykhdr/crackserver/internal/hashcrack/hasher"
	"github.com/ykhdr/crackserver/internal/logging"
	inet "github.com/ykhdr/crackserver/internal/net"
	"github.com/ykhdr/crackserver/internal/server/api"
	"github.com/ykhdr/crackserver/internal/session"
	"github.com/ykhdr/crackserver/internal/stats"
	"golang.org/x/sync/errgroup"
)

const serviceName = "crackserver"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	cfg, err := loadConfig(args)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, startupMessage(err, cfg))
		log.Error().Err(err).Msg("invalid configuration")
		return exitCode(err)
	}
	logging.Setup(cfg.Level())

	dict, err := dictionary.Load(cfg.Dictionary)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, startupMessage(err, cfg))
		log.Error().Err(err).Str("path", cfg.Dictionary).Msg("failed to load dictionary")
		return exitCode(err)
	}
	log.Info().Int("words", dict.Len()).Str("path", cfg.Dictionary).Msg("dictionary loaded")

	ln, err := dispatcher.Listen(cfg.Port, cfg.MaxConnections)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, startupMessage(err, cfg))
		log.Error().Err(err).Int("port", cfg.Port).Msg("failed to listen")
		return exitCode(err)
	}
	port := dispatcher.Port(ln)
	_, _ = fmt.Fprintf(stderr, "%d\n", port)

	apiLn := listenApi(cfg.ApiServerAddr)

	publisher := newPublisher(ctx, cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("close event publisher")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := stats.New(reg)

	h := hasher.NewDES()
	d := dispatcher.NewDispatcher(dict, &session.Env{
		Hasher:        h,
		Cracker:       hashcrack.NewCoordinator(h),
		Events:        publisher,
		Stats:         metrics,
		MaxLineLength: cfg.MaxLineLength,
		CrackTimeout:  cfg.CrackTimeout,
	})

	deregister := register(cfg, port, apiLn)
	defer deregister()

	log.Info().Int("port", port).Int("max-connections", cfg.MaxConnections).Msg("crackserver is running")
	group, gCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return d.Serve(gCtx, ln)
	})
	if apiLn != nil {
		group.Go(func() error {
			return api.NewServer(metrics, reg).Start(gCtx, apiLn)
		})
	}
	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("crackserver failed")
		return exitUsage
	}
	log.Info().Msg("crackserver stopped")
	return exitOK
}

// listenApi binds the admin API. An empty address disables it, and a bind
// failure only disables it.
func listenApi(addr string) net.Listener {
	if addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Warn().Err(err).Str("address", addr).Msg("admin api disabled")
		return nil
	}
	return ln
}

func loadConfig(args []string) (*config.CrackServerConfig, error) {
	cli, err := parseCLI(args)
	if err != nil {
		return nil, err
	}
	cfg, err := config.InitializeConfig(cli.Config)
	if err != nil {
		return nil, err
	}
	cli.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newPublisher(ctx context.Context, cfg *config.CrackServerConfig) events.Publisher {
	if cfg.AmqpConfig == nil {
		return events.NewNoop()
	}
	p, err := events.NewAmqp(ctx, cfg.AmqpConfig)
	if err != nil {
		log.Warn().Err(err).Msg("crack events disabled")
		return events.NewNoop()
	}
	return p
}

// register announces the TCP service to consul when configured and returns
// the matching cleanup. Registry problems never stop the server.
func register(cfg *config.CrackServerConfig, port int, apiLn net.Listener) func() {
	noop := func() {}
	if cfg.ConsulConfig == nil {
		return noop
	}
	client, err := consul.NewClient(cfg.ConsulConfig)
	if err != nil {
		log.Warn().Err(err).Msg("consul registration skipped")
		return noop
	}
	address, err := inet.AdvertiseAddr(cfg.AdvertiseAddress)
	if err != nil {
		log.Warn().Err(err).Msg("consul registration skipped")
		return noop
	}
	reg := &consul.Registration{
		Name:    serviceName,
		Address: address,
		Port:    port,
	}
	if apiLn != nil {
		if tcp, ok := apiLn.Addr().(*net.TCPAddr); ok {
			reg.HealthURL = fmt.Sprintf("http://%s%s", net.JoinHostPort(address, strconv.Itoa(tcp.Port)), api.HealthPath)
		}
	}
	if err := client.RegisterService(reg); err != nil {
		log.Warn().Err(err).Msg("consul registration failed")
		return noop
	}
	log.Info().Str("service-id", reg.Id()).Msg("registered in consul")
	return func() {
		if err := client.DeregisterService(reg.Id()); err != nil {
			log.Warn().Err(err).Msg("consul deregistration failed")
		}
	}
}
