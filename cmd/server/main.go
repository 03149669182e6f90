package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/l0kifs/task-context-mcp/config"
	"github.com/l0kifs/task-context-mcp/pkg/otel"
	"github.com/l0kifs/task-context-mcp/server"
)

var version = "0.0.1"

func main() {
	portFlag := flag.Int("port", 8080, "server port")
	addressFlag := flag.String("address", "", "server address")
	configFlag := flag.String("config", "config.yaml", "configuration path")

	flag.Parse()

	cfg, err := config.Parse(*configFlag)

	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	cfg.Address = fmt.Sprintf("%s:%d", *addressFlag, *portFlag)

	if err := otel.Setup("task-context", version); err != nil {
		log.Warnf("failed to setup opentelemetry: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := cfg.Services()

	if err != nil {
		log.Fatalf("failed to create services: %v", err)
	}

	if len(services) == 0 {
		log.Fatal("no servers configured")
	}

	for id, s := range services {
		go func(id string, s server.Service) {
			if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("server %s failed: %v", id, err)
				stop()

				return
			}

			log.Infof("server %s stopped", id)
		}(id, s)
	}

	<-ctx.Done()
	stop()
}
