package main

import (
	"log"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/midirender/api/internal/client"
	"github.com/midirender/api/internal/config"
	"github.com/midirender/api/internal/service"
)

// The MCP server speaks JSON-RPC on stdout, so logging stays on stderr.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	runner := client.NewExecRunner()
	fluidsynthClient := client.NewFluidsynthClient(runner, &cfg.Tools, &cfg.Render)
	if err := fluidsynthClient.CheckSoundfont(); err != nil {
		log.Printf("Warning: %v", err)
	}

	renderService := service.NewRenderService(
		service.NewWorkspace(cfg.Render.WorkDir),
		fluidsynthClient,
		client.NewFFmpegClient(runner, &cfg.Tools, &cfg.Render),
		client.NewFFprobeClient(runner, &cfg.Tools),
		service.RenderOptions{
			Timeout: time.Duration(cfg.Render.Timeout) * time.Second,
			// Artifacts are copied out, so the job directory is never needed afterwards
			CleanupOnComplete: true,
		},
	)

	s := newServer(cfg.Server.ServiceName, renderService)

	log.Printf("Starting %s MCP server...", cfg.Server.ServiceName)
	if err := server.ServeStdio(s); err != nil {
		log.Printf("Server error: %v", err)
	}
}
