package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"claim-evaluator/internal/model"
)

type LatestAnalysisLoader interface {
	Latest() (*model.ClaimsAnalysis, error)
}

type LatestAnalysisCache interface {
	SetLatest(ctx context.Context, analysis *model.ClaimsAnalysis) error
}

// AnalysisCacheWorker consumes analysis.completed events and re-warms the
// latest-analysis cache from the database.
type AnalysisCacheWorker struct {
	conn      *amqp.Connection
	repo      LatestAnalysisLoader
	cache     LatestAnalysisCache
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAnalysisCacheWorker(conn *amqp.Connection, repo LatestAnalysisLoader, cache LatestAnalysisCache, queueName string, logger *slog.Logger) *AnalysisCacheWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisCacheWorker{
		conn:      conn,
		repo:      repo,
		cache:     cache,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *AnalysisCacheWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"analysis-cache-worker",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.logger.Warn("analysis cache refresh failed", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *AnalysisCacheWorker) handle(ctx context.Context, body []byte) error {
	var event model.AnalysisCompletedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode analysis event failed: %w", err)
	}

	latest, err := w.repo.Latest()
	if err != nil {
		return err
	}
	if latest == nil {
		return nil
	}
	if err := w.cache.SetLatest(ctx, latest); err != nil {
		return err
	}
	w.logger.Debug("analysis cache refreshed", "event_analysis_id", event.AnalysisID, "latest_id", latest.ID)
	return nil
}

func (w *AnalysisCacheWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
