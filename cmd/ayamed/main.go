// Command ayamed runs the IRC daemon.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/ayame-irc/ayame/irc"
	"github.com/ayame-irc/ayame/irc/config"
)

func main() {
	configPath := flag.String("config", "ayame.toml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	server := irc.NewServer(cfg)
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	if err := server.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
