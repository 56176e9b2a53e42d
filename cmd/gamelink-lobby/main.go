// Command gamelink-lobby is a minimal chat lobby: it accepts links, logs
// hellos and relays chat lines to every other connected link.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"gamelink/pkg/config"
	"gamelink/pkg/observability"
	"gamelink/pkg/transport"
)

func main() {
	path := flag.String("config", "", "Path to YAML config file")
	listen := flag.String("listen", "", "UDP address to listen on (overrides lobby.listen)")
	flag.Parse()
	os.Exit(run(*path, *listen))
}

func run(path, listen string) int {
	cfg, err := config.Load(path)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}
	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()

	addr := cfg.Lobby.Listen
	if listen != "" {
		addr = listen
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mgr := transport.NewManager(transport.Options{Logger: logger})
	lobby := newLobby(mgr, logger, cfg.LobbyIdleTimeout())
	defer lobby.Close()
	mgr.OnAccept(lobby.accepted)
	mgr.OnLinkClosed(lobby.left)
	mgr.OnReceive(lobby.received)

	if err := mgr.Bind(ctx, addr); err != nil {
		zap.L().Error("failed to bind", zap.String("listen", addr), zap.Error(err))
		return 1
	}
	zap.L().Info("lobby is running; press Ctrl+C to exit", zap.Stringer("addr", mgr.LocalAddr()))
	<-ctx.Done()
	_ = mgr.Close()
	zap.L().Info("lobby stopped", zap.Int("players", lobby.players.Len()))
	return 0
}
