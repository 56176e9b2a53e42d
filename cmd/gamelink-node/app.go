package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"gamelink/pkg/config"
	"gamelink/pkg/message"
	"gamelink/pkg/observability"
	"gamelink/pkg/server"
	"gamelink/pkg/transport"
)

// run is the main entry point after CLI parsing.
func run(opts Options) int {
	cfg, err := config.Load(opts.ConfigPath)
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

	zap.L().Info("gamelink-node started", zap.String("app", cfg.AppName))
	zap.L().Info("effective configuration", zap.Stringer("config", cfg))

	profile := server.Profile{Name: cfg.Profile.Name, Password: cfg.Profile.Password}
	if opts.Name != "" {
		profile.Name = opts.Name
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mgr := transport.NewManager(transport.Options{Logger: logger})
	defer func() { _ = mgr.Close() }()

	sess := &session{
		license: cfg.LicenseKey,
		console: &console{out: os.Stdout},
	}
	srv, err := server.New(server.UDPLinks(mgr), sess, cfg,
		server.WithLogger(logger),
		server.WithFormat(cfg.BodyFormat()),
		server.WithResolveTimeout(cfg.ResolveTimeout()))
	if err != nil {
		zap.L().Error("invalid configuration", zap.Error(err))
		return 1
	}

	mgr.OnReceive(func(l *transport.Link, c transport.Category, p []byte) {
		m, err := srv.Codec().Decode(p)
		if err != nil {
			zap.L().Debug("undecodable payload", zap.Stringer("link", l.ID()), zap.Error(err))
			return
		}
		if c == message.CategoryChat {
			sess.console.ChatReceived(m)
			return
		}
		zap.L().Info("message", zap.String("kind", string(m.Kind)), zap.String("from", l.Name()))
	})

	if err := mgr.Bind(ctx, cfg.Net.Listen); err != nil {
		zap.L().Error("failed to bind", zap.String("listen", cfg.Net.Listen), zap.Error(err))
		return 1
	}
	zap.L().Info("node is running; type chat lines, /quit to exit", zap.Stringer("addr", mgr.LocalAddr()))

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	// connect without text so the lobby sees us before the first line
	srv.SendChat(ctx, profile, "")
	for {
		select {
		case <-ctx.Done():
			srv.CloseChatLink()
			return 0
		case line, ok := <-lines:
			if !ok {
				srv.CloseChatLink()
				return 0
			}
			switch line = strings.TrimSpace(line); line {
			case "":
			case "/quit":
				srv.CloseChatLink()
				return 0
			case "/leave":
				srv.CloseChatLink()
			default:
				srv.SendChat(ctx, profile, line)
			}
		}
	}
}
