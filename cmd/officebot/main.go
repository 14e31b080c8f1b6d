package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"office-quiz/internal/auth"
	"office-quiz/internal/behavior"
	"office-quiz/internal/client"
	"office-quiz/internal/config"
	"office-quiz/internal/db"
	"office-quiz/internal/loop"
	"office-quiz/internal/notice"
	"office-quiz/internal/notify"
	"office-quiz/internal/quiz"
	"office-quiz/internal/reward"
	"office-quiz/internal/room"
	"office-quiz/internal/server"
	"office-quiz/internal/telemetry"
	"office-quiz/internal/world"
)

func main() {
	name := flag.String("name", "", "player name (overrides PLAYER_NAME)")
	roomID := flag.String("room", "", "room id to join (overrides ROOM_ID)")
	addr := flag.String("addr", "", "control API listen address (overrides CONTROL_ADDR)")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *name != "" {
		cfg.PlayerName = *name
	}
	if *roomID != "" {
		cfg.RoomID = *roomID
	}
	if *addr != "" {
		cfg.ControlAddr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "officebot", cfg.OTelEndpoint)
	if err != nil {
		log.Printf("tracing disabled error=%v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	store := openStore(cfg.DatabaseURL)
	tokens, err := auth.Load(ctx, store, cfg.AccessToken)
	if err != nil {
		log.Printf("access token unavailable error=%v", err)
		tokens = auth.NewSource("", nil)
	}

	var stations []*world.Station
	if cfg.LayoutPath != "" {
		stations, err = world.LoadLayout(cfg.LayoutPath)
		if err != nil {
			log.Fatalf("layout: %v", err)
		}
	}

	l := loop.New(256)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go func() {
		_ = l.Run(loopCtx)
	}()

	opts := room.Options{
		RoomID:           cfg.RoomID,
		Password:         cfg.RoomPassword,
		Post:             l.Post,
		HandshakeTimeout: cfg.RequestTimeout(),
	}
	if cfg.RoomID == "" && cfg.RoomName != "" {
		opts.Create = &room.CreateOptions{
			Name:        cfg.RoomName,
			Description: cfg.RoomDescription,
			Password:    cfg.RoomPassword,
			AutoDispose: true,
		}
	}
	conn, err := room.Dial(ctx, cfg.RoomURL, opts)
	if err != nil {
		log.Fatalf("room connection failed: %v", err)
	}
	defer conn.Close()

	var lobby room.Room
	if cfg.LobbyURL != "" {
		lobbyConn, err := room.Dial(ctx, cfg.LobbyURL, room.Options{
			Post:             l.Post,
			HandshakeTimeout: cfg.RequestTimeout(),
		})
		if err != nil {
			log.Printf("lobby unavailable error=%v", err)
		} else {
			defer lobbyConn.Close()
			lobby = lobbyConn
		}
	}

	var alerts client.AlertSource
	if cfg.NotifyURL != "" {
		alerts = dialAlerts(ctx, cfg.NotifyURL, tokens, l.Post)
	}

	var rewards quiz.Submitter
	if cfg.RewardURL != "" {
		rewards = reward.NewClient(cfg.RewardURL, cfg.RequestTimeout())
	}

	behaviorOpts := behavior.DefaultOptions()
	behaviorOpts.Texture = cfg.PlayerTexture
	behaviorOpts.SpawnX = cfg.SpawnX
	behaviorOpts.SpawnY = cfg.SpawnY
	behaviorOpts.WorkDuration = cfg.WorkDuration()
	behaviorOpts.ProgressTicks = cfg.ProgressTicks

	quizOpts := quiz.DefaultOptions()
	quizOpts.Prize = cfg.QuizPrize
	quizOpts.WaitGrace = cfg.WaitGrace()
	quizOpts.RequestTimeout = cfg.RequestTimeout()

	hub := server.NewHub()
	defer hub.Close()

	c := client.New(l, conn, client.Options{
		Printer:  notice.NewPrinter(cfg.Locale),
		Store:    store,
		Tokens:   tokens,
		Rewards:  rewards,
		Stations: stations,
		StationURLs: map[world.StationKind]map[string]string{
			world.KindWhiteboard: cfg.WhiteboardURLMap(),
			world.KindComputer:   cfg.ComputerURLMap(),
		},
		Behavior:     behaviorOpts,
		Quiz:         quizOpts,
		Sink:         hub,
		Lobby:        lobby,
		Alerts:       alerts,
		TickInterval: cfg.TickInterval(),
	})
	if err := c.Start(ctx, cfg.PlayerName, cfg.PlayerTexture); err != nil {
		log.Fatalf("client start failed: %v", err)
	}

	srv := server.New(c, hub, cfg.RequestTimeout())
	httpServer := &http.Server{
		Addr:              cfg.ControlAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("officebot control API listening on %s", cfg.ControlAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("control API stopped error=%v", err)
		}
	}()

	runErr := c.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Printf("officebot stopped error=%v", runErr)
		return
	}
	log.Println("officebot stopped")
}

// dialAlerts returns nil when there is no token or the socket is down. The
// listener is closed when ctx ends.
func dialAlerts(ctx context.Context, baseURL string, tokens *auth.Source, post func(func()) bool) client.AlertSource {
	token, err := tokens.Token()
	if err != nil {
		log.Printf("notifications skipped error=%v", err)
		return nil
	}
	listener, err := notify.Dial(ctx, baseURL, token, notify.Options{Post: post})
	if err != nil {
		log.Printf("notifications unavailable error=%v", err)
		return nil
	}
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()
	return listener
}

func openStore(dsn string) *db.Store {
	if dsn == "" {
		return db.NewStore(nil)
	}
	conn, err := db.Open(dsn)
	if err != nil {
		log.Printf("database unavailable, continuing without history error=%v", err)
		return db.NewStore(nil)
	}
	if err := db.Migrate(conn); err != nil {
		log.Printf("database migration failed, continuing without history error=%v", err)
		return db.NewStore(nil)
	}
	return db.NewStore(conn)
}
