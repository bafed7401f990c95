// gen-diagrams generates sample diagram outputs for README documentation.
// Run: go run ./cmd/gen-diagrams
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rendis/flowedit/internal/render"
	"github.com/rendis/flowedit/pkg/schema"
)

func main() {
	// Intake workflow: webhook → filter → llm summary → (email, notification)
	g := schema.Graph{
		Nodes: []schema.Node{
			{ID: "hook", Type: schema.NodeTrigger, Data: schema.NodeData{"name": "Order webhook", "type": schema.TriggerWebhook, "path": "/hooks/orders"}},
			{ID: "big-orders", Type: schema.NodeFunction, Data: schema.NodeData{"name": "Big orders", "type": schema.FunctionFilter, "condition": "item.total > 500"}},
			{ID: "summary", Type: schema.NodeAI, Data: schema.NodeData{"name": "Summarize", "type": schema.AILLM, "model": "gpt-4", "prompt": "Summarize the order"}},
			{ID: "mail", Type: schema.NodeAction, Data: schema.NodeData{"name": "Email sales", "type": schema.ActionEmail}},
			{ID: "notify", Type: schema.NodeAction, Data: schema.NodeData{"name": "Notify ops", "type": schema.ActionNotification}},
		},
		Edges: []schema.Edge{
			{ID: "e-hook-big-orders", Source: "hook", Target: "big-orders"},
			{ID: "e-big-orders-summary", Source: "big-orders", Target: "summary"},
			{ID: "e-summary-mail", Source: "summary", Target: "mail"},
			{ID: "e-summary-notify", Source: "summary", Target: "notify"},
		},
	}

	logs := []schema.ExecutionLog{
		{NodeID: "hook", Status: schema.NodeCompleted},
		{NodeID: "big-orders", Status: schema.NodeCompleted},
		{NodeID: "summary", Status: schema.NodeCompleted},
		{NodeID: "mail", Status: schema.NodeFailed, ErrorMessage: "SMTP timeout"},
		{NodeID: "notify", Status: schema.NodeSkipped},
	}

	d := render.Build("Order intake", g, logs)

	outDir := filepath.Join("docs", "assets")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir error: %v\n", err)
		os.Exit(1)
	}

	ascii := render.RenderASCII(d)
	write(filepath.Join(outDir, "diagram-ascii.txt"), []byte(ascii))
	fmt.Println("=== ASCII ===")
	fmt.Println(ascii)

	mermaid := render.RenderMermaid(d)
	write(filepath.Join(outDir, "diagram-mermaid.md"), []byte("```mermaid\n"+mermaid+"\n```\n"))
	fmt.Println("=== Mermaid ===")
	fmt.Println(mermaid)

	png, err := render.RenderImage(context.Background(), d)
	if err != nil {
		fmt.Fprintf(os.Stderr, "image error: %v\n", err)
		os.Exit(1)
	}
	write(filepath.Join(outDir, "diagram-image.png"), png)
	fmt.Printf("=== Image: %d bytes ===\n", len(png))
}

func write(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
		os.Exit(1)
	}
}
