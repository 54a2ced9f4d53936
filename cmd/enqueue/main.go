package main

import (
	"flag"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/otienoanyango/hansard-tales-sub004/internal/queue"
	"github.com/otienoanyango/hansard-tales-sub004/internal/util"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger/console"
)

// enqueue submits a document batch for analysis:
//
//	enqueue -documents doc-2024-03-12,doc-2024-03-13
func main() {
	util.LoadEnv()
	logger.Init(console.NewConsoleBackend(console.ConsoleBackendParams{
		Debug: util.GetEnvBool("DEBUG", false),
	}))

	batchID := flag.String("batch", "", "batch id (generated when empty)")
	documents := flag.String("documents", "", "comma-separated document ids")
	flag.Parse()

	var ids []string
	for _, id := range strings.Split(*documents, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		logger.Fatal("No document ids given, use -documents")
	}

	if *batchID == "" {
		id, err := gonanoid.New()
		if err != nil {
			logger.Fatal("Failed to generate batch id", "err", err)
		}
		*batchID = id
	}

	conn := queue.Init()
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	msg := queue.AnalysisMessage{BatchID: *batchID, DocumentIDs: ids}
	if err := queue.PublishAnalysis(ch, msg); err != nil {
		logger.Fatal("Failed to publish batch", "err", err)
	}
	logger.Info("Batch enqueued", "batch_id", *batchID, "documents", len(ids))
}
