package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"melissaapi/common"
	"melissaapi/config"
	"melissaapi/melissa"
)

func main() {
	if err := run(os.Args[1:], runDeps{}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runDeps struct {
	ctx          context.Context
	logger       log.Logger
	flagOutput   io.Writer
	stdout       io.Writer
	lookupEnv    func(string) (string, bool)
	httpClient   melissa.HTTPClient
	checkIP      common.CheckIP
	newRef       func() string
	serveMetrics func(ctx context.Context, addr string, handler http.Handler) error
}

func run(args []string, deps runDeps) error {
	if deps.ctx == nil {
		deps.ctx = context.Background()
	}
	if deps.flagOutput == nil {
		deps.flagOutput = os.Stderr
	}
	if deps.stdout == nil {
		deps.stdout = os.Stdout
	}
	if deps.lookupEnv == nil {
		deps.lookupEnv = os.LookupEnv
	}
	if deps.checkIP == nil {
		deps.checkIP = &common.CheckIPs{}
	}
	if deps.newRef == nil {
		deps.newRef = uuid.NewString
	}
	if deps.serveMetrics == nil {
		deps.serveMetrics = serveMetrics
	}

	fs := flag.NewFlagSet("melissa", flag.ContinueOnError)
	fs.SetOutput(deps.flagOutput)
	configFile := fs.String("config", "", "Path to the YAML configuration file (optional; MELISSA_* environment variables override it)")
	envFile := fs.String("env", "", "Path to a dotenv file loaded before reading the environment")
	ipAddress := fs.String("ip", "", "IPv4 address to locate")
	transmissionReference := fs.String("t", "", "transmission reference echoed back by the API")
	autoRef := fs.Bool("auto-ref", false, "generate a random transmission reference for every lookup")
	timeout := fs.Duration("timeout", 0, "request timeout (overrides config; 0 keeps the configured value, default 3m)")
	interval := fs.Duration("interval", 0, "repeat the lookup at this interval until interrupted (0 runs once)")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address while running (e.g. :9100)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*ipAddress) == "" {
		return fmt.Errorf("-ip is required")
	}
	if *autoRef && *transmissionReference != "" {
		return fmt.Errorf("-t and -auto-ref cannot be combined")
	}
	if *timeout < 0 {
		return fmt.Errorf("-timeout must be >= 0")
	}
	if *interval < 0 {
		return fmt.Errorf("-interval must be >= 0")
	}

	ip := common.NormalizeIP(*ipAddress)
	ipType, err := deps.checkIP.CheckIPType(ip)
	if err != nil {
		return fmt.Errorf("invalid -ip: %v", err)
	}
	// IP Locator only validates IPv4 addresses.
	if ipType != 4 {
		return fmt.Errorf("invalid -ip %q: only IPv4 addresses are supported", ip)
	}

	if *envFile != "" {
		if err := config.LoadEnvFile(*envFile); err != nil {
			return err
		}
	}
	cfg := &config.Config{}
	if *configFile != "" {
		cfg, err = config.ReadConfig(*configFile)
		if err != nil {
			return fmt.Errorf("failed to read configuration file: %v", err)
		}
	}
	if err := cfg.ApplyEnv(deps.lookupEnv); err != nil {
		return fmt.Errorf("invalid environment configuration: %v", err)
	}
	clientTimeout, err := cfg.TimeoutDuration()
	if err != nil {
		return err
	}
	if *timeout > 0 {
		clientTimeout = *timeout
	}

	logger := deps.logger
	if logger == nil {
		logger = newLogger(os.Stderr, cfg.Logging.Level)
	}

	opts := []melissa.Option{
		melissa.WithLogger(logger),
		melissa.WithBaseURL(cfg.BaseURL),
		melissa.WithMaxResponseBytes(cfg.MaxResponseBytes),
	}
	if deps.httpClient != nil {
		opts = append(opts, melissa.WithHTTPClient(deps.httpClient))
	}

	ctx, stop := signal.NotifyContext(deps.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, melissa.WithMetrics(melissa.NewMetrics(reg)))
		handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		go func() {
			if err := deps.serveMetrics(ctx, *metricsAddr, handler); err != nil {
				level.Error(logger).Log("msg", "metrics server failed", "addr", *metricsAddr, "err", err)
			}
		}()
	}

	client, err := melissa.New(melissa.Config{
		LicenseKey: cfg.LicenseKey,
		UserID:     cfg.UserID,
		Timeout:    clientTimeout,
		Logging: melissa.LogConfig{
			Query:        cfg.Logging.Query,
			RequestBody:  cfg.Logging.RequestBody,
			ResponseBody: cfg.Logging.ResponseBody,
		},
	}, opts...)
	if err != nil {
		return err
	}

	if cfg.LicenseKey == "" && cfg.UserID == "" {
		level.Warn(logger).Log("msg", "no license key or user id configured; the API will reject the request")
	}
	level.Info(logger).Log(
		"msg", "Starting melissa IP lookup",
		"ip", ip,
		"ip_version", ipType,
		"timeout", client.Timeout(),
		"base_url", cfg.BaseURL,
		"interval", *interval,
		"metrics_addr", *metricsAddr,
	)

	lookup := func() error {
		ref := *transmissionReference
		if *autoRef {
			ref = deps.newRef()
		}
		raw, err := client.IPLocation(ctx, ip, ref)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(deps.stdout, "%s\n", raw)
		return err
	}

	if *interval == 0 {
		return lookup()
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		if err := lookup(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			level.Error(logger).Log("msg", "lookup failed", "ip", ip, "status", melissa.StatusCode(err), "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func newLogger(w io.Writer, lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	return level.NewFilter(logger, levelOption(lvl))
}

func levelOption(lvl string) level.Option {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	case "none":
		return level.AllowNone()
	default:
		return level.AllowInfo()
	}
}

func serveMetrics(ctx context.Context, addr string, handler http.Handler) error {
	router := mux.NewRouter()
	router.Handle("/metrics", handler).Methods(http.MethodGet)
	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
