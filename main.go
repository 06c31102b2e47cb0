package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	"peeruno/auth"
	"peeruno/p2p"
)

const defaultVersion = "1.0.0"

type config struct {
	P2PPort  int    `env:"UNO_P2P_PORT,default=5007"`
	APIAddr  string `env:"UNO_API_ADDR,default=localhost:8080"`
	DBPath   string `env:"UNO_DB,default=peeruno.db"`
	LogLevel string `env:"UNO_LOG_LEVEL,default=info"`
}

func main() {
	var cfg config
	if err := envdecode.Decode(&cfg); err != nil {
		logrus.Fatalf("Invalid environment config: %s", err)
	}

	var (
		p2pPort  = flag.Int("p2p-port", cfg.P2PPort, "TCP port for peer sessions")
		apiAddr  = flag.String("api-addr", cfg.APIAddr, "HTTP API listen address")
		dbPath   = flag.String("db", cfg.DBPath, "Path to the user database")
		logLevel = flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
		version  = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("Peeruno LAN UNO node v%s\n", defaultVersion)
		os.Exit(0)
	}

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", *logLevel)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	store, err := auth.Open(*dbPath)
	if err != nil {
		logrus.Fatalf("Failed to open user database %s: %s", *dbPath, err)
	}

	server := p2p.NewAPIServer(*apiAddr, *p2pPort, store)

	logrus.Info("===========================================")
	logrus.Info("  Peeruno LAN UNO node")
	logrus.Info("===========================================")
	logrus.Infof("Version:      %s", defaultVersion)
	logrus.Infof("P2P Port:     %d", *p2pPort)
	logrus.Infof("API Address:  http://%s", *apiAddr)
	logrus.Infof("User DB:      %s", *dbPath)
	logrus.Info("===========================================")
	logrus.Info("")
	logrus.Info("API Endpoints:")
	logrus.Infof("  Health:     GET  http://%s/api/health", *apiAddr)
	logrus.Infof("  Register:   POST http://%s/api/register", *apiAddr)
	logrus.Infof("  Login:      POST http://%s/api/login", *apiAddr)
	logrus.Infof("  Host:       POST http://%s/api/host", *apiAddr)
	logrus.Infof("  Join:       POST http://%s/api/join", *apiAddr)
	logrus.Infof("  Ready:      POST http://%s/api/ready", *apiAddr)
	logrus.Infof("  Start:      POST http://%s/api/start", *apiAddr)
	logrus.Infof("  Draw:       POST http://%s/api/draw", *apiAddr)
	logrus.Infof("  Play:       POST http://%s/api/play", *apiAddr)
	logrus.Infof("  Chat:       GET/POST http://%s/api/chat", *apiAddr)
	logrus.Infof("  Players:    GET  http://%s/api/players", *apiAddr)
	logrus.Infof("  State:      GET  http://%s/api/state", *apiAddr)
	logrus.Info("===========================================")
	logrus.Info("")
	logrus.Info("Server starting... Press Ctrl+C to stop")

	go func() {
		if err := server.Run(); err != nil {
			logrus.Fatalf("API server stopped: %s", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logrus.Info("")
	logrus.Info("Shutdown signal received. Cleaning up...")
	logrus.Info("Server stopped")
}
