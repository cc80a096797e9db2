// Command corequery is a one-shot CLI over the retrieval and graph-query
// API: point it at a container and a question, get back scored hits (or a
// graph traversal) on stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"corectx/internal/bootstrap"
	"corectx/internal/config"
	"corectx/internal/retrieve"
	"corectx/internal/service"
)

const buildTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "corequery:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	containerID := flag.String("container", "", "container UUID to search")
	query := flag.String("query", "", "query text")
	mode := flag.String("mode", string(retrieve.ModeHybrid), "search mode (semantic, bm25, hybrid, crossmodal, graph, hybrid_graph)")
	topK := flag.Int("topk", 10, "number of results to return")
	graphMode := flag.Bool("graph", false, "run a natural-language graph query instead of a retrieval search")
	maxHops := flag.Int("maxhops", 2, "max traversal hops for -graph")
	flag.Parse()

	if *containerID == "" || *query == "" {
		return fmt.Errorf("-container and -query are required")
	}
	cid, err := uuid.Parse(*containerID)
	if err != nil {
		return fmt.Errorf("parse container id: %w", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
	app, err := bootstrap.Build(ctx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer app.Close()

	runCtx, runCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer runCancel()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *graphMode {
		res, err := app.Service.GraphSearch(runCtx, service.GraphSearchRequest{
			ContainerID: cid,
			Query:       *query,
			MaxHops:     *maxHops,
			K:           *topK,
		})
		if err != nil {
			return fmt.Errorf("graph search: %w", err)
		}
		return enc.Encode(res)
	}

	resp, err := app.Service.Search(runCtx, retrieve.Request{
		ContainerIDs: []uuid.UUID{cid},
		Mode:         retrieve.Mode(*mode),
		Query:        *query,
		TopK:         *topK,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return enc.Encode(resp)
}
