package app

import (
	"github.com/rs/zerolog"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/config"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/digest"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/fetch"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/logging"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/pipeline"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/summarize"
)

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logging.New(cfg.Environment, cfg.LogLevel)
}

// newPipeline assembles the ingestion service from config: the fetch client,
// the clustering options, and the optional Ollama summarizer. A model host
// that cannot be reached at startup just disables summaries.
func newPipeline(cfg *config.Config, pool *db.Pool, logger zerolog.Logger) (*pipeline.Service, error) {
	fetcher := fetch.NewClient(cfg.FetchTimeout, cfg.FetchUserAgent)

	service, err := pipeline.NewService(pool, fetcher, logging.WithComponent(logger, "pipeline"), pipeline.Options{
		Workers:           cfg.PollWorkers,
		PollInterval:      cfg.PollInterval,
		ClusterWindow:     cfg.ClusterWindow,
		ClusterCandidates: cfg.ClusterCandidates,
	})
	if err != nil {
		return nil, err
	}

	completer, err := summarize.NewOllamaCompleter(cfg.OllamaHost, cfg.OllamaModel)
	if err != nil {
		logger.Warn().Err(err).Msg("summarizer unavailable, continuing without AI summaries")
	}

	summaryLogger := logging.WithComponent(logger, "summarize")
	var summarizer *summarize.Service
	if completer != nil {
		summarizer, err = summarize.NewService(pool, completer, summaryLogger)
	} else {
		summarizer, err = summarize.NewService(pool, nil, summaryLogger)
	}
	if err != nil {
		return nil, err
	}
	service.SetSummarizer(summarizer)

	return service, nil
}

func newDigestService(cfg *config.Config, pool *db.Pool, logger zerolog.Logger) (*digest.Service, error) {
	return digest.NewService(pool, logging.WithComponent(logger, "digest"), digest.Options{
		BacklogThreshold: cfg.DigestBacklogThreshold,
		AwayLookback:     cfg.DigestAwayLookback,
	})
}
