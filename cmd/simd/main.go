package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/eveinstein/TMS-Simulator-App-sub001/internal/config"
	"github.com/eveinstein/TMS-Simulator-App-sub001/internal/log"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/coil"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/surface"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/web"
)

func main() {
	// Command line flags
	port := flag.String("port", config.Port(), "HTTP listen port")
	radius := flag.Float64("radius", config.DomeRadius(), "Head dome radius in meters")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := config.LogLevel()
	if *debug {
		level = "debug"
	}
	log.Init(level)

	log.Info("starting placement daemon",
		"port", *port,
		"radius", *radius,
		"tick", config.TickInterval())

	// Build the head surface and its landmark table
	dome := surface.NewDome(*radius, 0, 24, 48)
	landmarks := coil.DefaultLandmarks(*radius)

	engine, err := coil.NewEngine(coil.DefaultConfig(), landmarks)
	if err != nil {
		log.Error("engine init failed", "error", err)
		os.Exit(1)
	}
	engine.SetSurface(dome)

	manager := coil.NewManager(engine, config.TickInterval())
	server := web.NewServer(*port, manager)

	// Every broadcast-worthy tick feeds the viewer stream
	manager.OnOutput(func(t coil.Transform, tick uint64) {
		server.PublishTransform(t)
	})

	go manager.Run()
	server.StartAsync()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	manager.Stop()
	if err := server.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
