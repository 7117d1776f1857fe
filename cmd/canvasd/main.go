package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"canvasd/internal/adapter/gateway"
	"canvasd/internal/adapter/mcpserver"
	"canvasd/internal/adapter/tool"
	"canvasd/internal/adapter/workspace"
	"canvasd/internal/domain"
	"canvasd/internal/infra/config"
	"canvasd/internal/infra/logger"
	"canvasd/internal/infra/tracer"
	"canvasd/internal/usecase/canvas"
	"canvasd/internal/usecase/eventbus"
	"canvasd/internal/usecase/syncer"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		case "--version", "version":
			fmt.Println("canvasd " + version)
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`canvasd - shared canvas document server

USAGE:
    canvasd [FLAGS]

FLAGS:
    -h, --help         Show this help message
    --version          Print the version
    --config PATH      Config file path (default: ./config.yaml)
    --mcp              Serve tools to the agent over MCP on stdio

CONFIGURATION:
    Config file: ./config.yaml
    Environment: CANVASD_* variables override config

EXAMPLES:
    canvasd                          # gateway for the browser UI
    canvasd --mcp                    # plus MCP stdio for the agent
    CANVASD_RELAY_URL=http://relay:8000 canvasd`)
}

func run() error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if hasFlag("--mcp") {
		cfg.MCP.Enabled = true
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	bus := eventbus.New(log)
	defer bus.Close()

	// Canvas state and mutation catalog.
	store := canvas.NewStore(domain.CanvasState{GlobalTitle: cfg.Canvas.Title}, bus)
	ui := canvas.NewUIStore()
	guard := canvas.NewCreateGuard(cfg.Canvas.CreateWindow)
	ops := canvas.NewOps(store, ui, guard, log)

	// Workspace relay behind a circuit breaker.
	relay := workspace.NewBreakerRelay(workspace.NewClient(cfg.Relay, log), cfg.Relay.Breaker, log)

	// Sync engine with debounced auto-export.
	engine := syncer.NewEngine(ops, relay, bus, log, cfg.Sync.Debounce)
	engine.Start()
	defer engine.Stop()

	// Disambiguation suspend point, served over the gateway.
	broker := gateway.NewChoiceBroker(bus, log)
	importer := syncer.NewImporter(ops, syncer.ChoiceConflictDecider{Requester: broker}, log)

	// Tool registry for both the gateway and the MCP server.
	registry := tool.NewRegistry(log)
	for _, t := range []domain.Tool{
		tool.NewCanvasTool(ops, bus, log),
		tool.NewSyncTool(engine, importer, cfg.Sync.RelayRateLimit, log),
		tool.NewChooseItemTool(ops, broker, log),
		tool.NewChooseCardTypeTool(broker, log),
	} {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("register tool: %w", err)
		}
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 2)

	if cfg.Gateway.Enabled {
		var auth gateway.Authenticator = gateway.OpenAuth{}
		if cfg.Gateway.Auth.Mode == "token" {
			auth = gateway.NewStaticTokenAuth(cfg.Gateway.Auth.Token)
		}
		srv := gateway.NewServer(bus, auth, cfg.Gateway.Addr,
			cfg.Gateway.RatePerSecond, cfg.Gateway.RateBurst, log)
		gateway.RegisterDefaultHandlers(srv, gateway.HandlerDeps{
			Ops:    ops,
			UI:     ui,
			Tools:  registry,
			Broker: broker,
			Bus:    bus,
			Logger: log,
		})
		go func() {
			if err := srv.Start(ctx); err != nil {
				errCh <- fmt.Errorf("gateway: %w", err)
			}
		}()
		defer func() {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelShutdown()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Error("gateway stop error", "error", err)
			}
		}()
	}

	if cfg.MCP.Enabled {
		mcp := mcpserver.New(registry.List(), version, log)
		go func() {
			if err := mcp.ServeStdio(ctx); err != nil {
				errCh <- fmt.Errorf("mcp: %w", err)
			}
		}()
	}

	log.Info("canvasd starting",
		"version", version,
		"gateway", cfg.Gateway.Enabled,
		"mcp", cfg.MCP.Enabled,
		"relay", cfg.Relay.BaseURL,
		"tools", len(registry.List()),
	)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return "config.yaml"
}

func hasFlag(name string) bool {
	for _, arg := range os.Args[1:] {
		if arg == name {
			return true
		}
	}
	return false
}
