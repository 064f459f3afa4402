package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/midirender/api/internal/model"
	"github.com/midirender/api/internal/service"
)

const version = "1.0.0"

// renderSummary is returned to the MCP client after a successful render
type renderSummary struct {
	OutputPath     string             `json:"outputPath"`
	Format         model.OutputFormat `json:"format"`
	DurationSecs   int                `json:"durationSeconds"`
	Program        int                `json:"program"`
	InstrumentName string             `json:"instrumentName"`
	JobID          string             `json:"jobId"`
}

func newServer(name string, svc *service.RenderService) *server.MCPServer {
	s := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(false),
	)

	listTool := mcp.NewTool("list_instruments",
		mcp.WithDescription("Lists the 128 General MIDI instruments with their program numbers."),
	)
	s.AddTool(listTool, listInstrumentsHandler)

	renderTool := mcp.NewTool("render_midi",
		mcp.WithDescription("Renders a MIDI file to audio with the chosen General MIDI instrument."),
		mcp.WithString("midi_path", mcp.Required(), mcp.Description("Path of the MIDI file to render.")),
		mcp.WithString("output_path", mcp.Required(), mcp.Description("Where the rendered audio is written.")),
		mcp.WithString("format", mcp.Description("Output format, mp3 (default) or wav.")),
		mcp.WithNumber("program", mcp.Description("General MIDI program number 0-127 (default 0, Acoustic Grand Piano).")),
	)
	s.AddTool(renderTool, renderMIDIHandler(svc))

	return s
}

func listInstrumentsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log.Println("[mcp] Handling list instruments request.")

	asJSON, err := json.MarshalIndent(model.Instruments(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal instruments: %v", err)
	}
	return mcp.NewToolResultText(string(asJSON)), nil
}

func renderMIDIHandler(svc *service.RenderService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		midiPath, err := request.RequireString("midi_path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		outputPath, err := request.RequireString("output_path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		format := request.GetString("format", string(model.DefaultFormat))
		program := request.GetInt("program", 0)

		log.Printf("[mcp] Rendering %s (format=%s program=%d)", midiPath, format, program)

		f, err := os.Open(midiPath)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to open MIDI file: %v", err)), nil
		}
		defer f.Close()

		result, err := svc.Render(ctx, &service.RenderInput{
			MIDI:    f,
			Format:  format,
			Program: program,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		defer svc.Release(result)

		if err := copyFile(result.Path, outputPath); err != nil {
			return nil, fmt.Errorf("failed to write output: %v", err)
		}

		asJSON, err := json.MarshalIndent(renderSummary{
			OutputPath:     outputPath,
			Format:         result.Format,
			DurationSecs:   result.DurationSecs,
			Program:        result.Program,
			InstrumentName: result.InstrumentName,
			JobID:          result.JobID,
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %v", err)
		}
		return mcp.NewToolResultText(string(asJSON)), nil
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
