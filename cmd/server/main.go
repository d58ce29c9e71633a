package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"sinbadgame/internal/audio"
	"sinbadgame/internal/config"
	"sinbadgame/internal/content"
	"sinbadgame/internal/event"
	"sinbadgame/internal/store"
	"sinbadgame/internal/ws"
	staticserver "sinbadgame/static"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Sinbad - memory training game server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                Port to listen on (default: 8080)
  MONGO_URI           MongoDB connection string (required)
  MONGO_DATABASE      MongoDB database name (default: sinbadgame)
  RABBITMQ_URI        AMQP URL for session events (optional)
  RABBITMQ_EXCHANGE   Topic exchange for session events (default: sinbad.events)
  AUDIO_ENABLED       Play clips on the server box, kiosk mode (default: false)
  AUDIO_DIR           Directory holding the mp3 clips (default: ./assets)
  CORS_ORIGINS        Comma-separated allowed origins (default: http://localhost:3000)

Visit http://localhost:8080 after starting the server.
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Sinbad %s\n", version)
		return
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}
	cfg := config.FromEnv()
	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	provider, err := content.NewProvider()
	if err != nil {
		zerologlog.Fatal().Err(err).Msg("load game content")
	}

	if cfg.MongoURI == "" {
		zerologlog.Fatal().Msg("MONGO_URI is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := store.Connect(ctx, cfg.MongoURI)
	cancel()
	if err != nil {
		zerologlog.Fatal().Err(err).Msg("connect mongo")
	}
	defer client.Disconnect(context.Background())
	sink := store.NewResultSink(client.Database(cfg.MongoDatabase))

	var pub *event.Publisher
	if cfg.RabbitURI != "" {
		pub, err = event.NewPublisher(cfg.RabbitURI, cfg.RabbitExchange)
		if err != nil {
			zerologlog.Fatal().Err(err).Msg("connect rabbitmq")
		}
		defer pub.Close()
	} else {
		zerologlog.Info().Msg("RabbitMQ not configured, session events will not be published")
	}

	var player audio.Player = audio.NopPlayer{}
	if cfg.AudioEnabled {
		bp, err := audio.NewBeepPlayer(cfg.AudioDir)
		if err != nil {
			zerologlog.Fatal().Err(err).Msg("init audio")
		}
		player = bp
	}

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		zerologlog.Info().Str("path", path).Int("status", c.Writer.Status()).
			Dur("dur", time.Since(start)).Msg("http")
	})
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	sock := ws.New(provider, sink, pub, player)
	io := sock.Mount(r)
	defer io.Close()

	// Results screen reads the finished session here
	r.GET("/api/session/:id", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		summary, err := sink.GetSession(ctx, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
			return
		}
		c.JSON(http.StatusOK, summary)
	})
	r.GET("/api/sessions/active-count", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"count": sock.ActiveSessions()})
	})

	// Serve frontend for all other routes
	r.NoRoute(func(c *gin.Context) {
		staticserver.Handler().ServeHTTP(c.Writer, c.Request)
	})

	zerologlog.Info().Str("port", port).Msg("listening")
	if err := r.Run(":" + port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server exited")
	}
}
