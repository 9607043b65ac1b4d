package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"bounty-orchestrator/cli"
	"bounty-orchestrator/mcp"
)

// bounty-agent exposes the bounty workflows as MCP tools over stdio so
// agent frameworks can drive the full lifecycle. Workflow metrics are
// served on a side HTTP listener.
func main() {
	network := flag.String("network", "testnet", "target network (testnet|mainnet)")
	flag.Parse()

	ctx := context.Background()
	rt, err := cli.Setup(ctx, *network)
	if err != nil {
		log.Fatalf("setup: %v", err)
	}
	defer rt.Close()

	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		metricsPort = "9090"
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+metricsPort, mux); err != nil {
			log.Printf("metrics listener: %v", err)
		}
	}()

	agent := mcp.NewMCPServer(rt.Deps)
	log.Printf("bounty agent starting on %s as %s (metrics on :%s)", rt.Network.Name, rt.Signer.Address().Hex(), metricsPort)

	if err := server.ServeStdio(agent.GetMCPServer()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
