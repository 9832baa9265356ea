// Package worker rejoue les webhooks Stripe déposés sur le topic de lettres
// mortes jusqu'à ce que la commande existe ou que les tentatives soient épuisées.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/orders"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// MessageSource est la partie de kafka.Reader dont le worker se sert.
// Un reader ne doit être utilisé que par une seule goroutine.
type MessageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Reconciler interface {
	ReconcileSession(ctx context.Context, sessionID string) orders.Outcome
}

// Sink reçoit une lettre morte : le topic pour une nouvelle tentative,
// l'archive MongoDB pour un abandon définitif.
type Sink interface {
	Record(ctx context.Context, dl models.WebhookDeadLetter) error
}

type Config struct {
	MaxAttempts  int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	ReadRetries  int
	ReadInterval time.Duration
}

type DeadLetterWorker struct {
	source     MessageSource
	reconciler Reconciler
	requeue    Sink
	archive    Sink
	cfg        Config
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewDeadLetterReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		MaxWait:        time.Second,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error().Str("topic", topic).Msgf("❌ kafka: "+msg, args...)
		}),
	})
}

func NewDeadLetterWorker(source MessageSource, reconciler Reconciler, requeue, archive Sink, cfg Config) *DeadLetterWorker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = time.Minute
	}
	if cfg.ReadRetries <= 0 {
		cfg.ReadRetries = 3
	}
	if cfg.ReadInterval <= 0 {
		cfg.ReadInterval = 500 * time.Millisecond
	}
	return &DeadLetterWorker{
		source:     source,
		reconciler: reconciler,
		requeue:    requeue,
		archive:    archive,
		cfg:        cfg,
		sleep:      sleepCtx,
	}
}

// Run bloque jusqu'à l'annulation du contexte ou la fermeture du reader.
func (w *DeadLetterWorker) Run(ctx context.Context) error {
	log.Info().Int("max_attempts", w.cfg.MaxAttempts).Msg("🔁 Worker de lettres mortes démarré")
	defer log.Info().Msg("🛑 Worker de lettres mortes arrêté")

	failures := 0
	for {
		msg, err := w.source.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			failures++
			if failures > w.cfg.ReadRetries {
				return fmt.Errorf("lecture du topic de lettres mortes: %w", err)
			}
			log.Warn().Err(err).Int("retry", failures).Msg("⚠️ Lecture Kafka échouée, nouvelle tentative")
			if err := w.sleep(ctx, w.cfg.ReadInterval*time.Duration(failures)); err != nil {
				return nil
			}
			continue
		}
		failures = 0

		if !w.handleUntilDone(ctx, msg) {
			return nil
		}
		if err := w.source.CommitMessages(ctx, msg); err != nil {
			log.Error().Err(err).Int64("offset", msg.Offset).Msg("❌ Commit Kafka échoué")
		}
	}
}

// handleUntilDone rejoue Handle sur le même message jusqu'au succès ; aucun
// message suivant n'est lu avant. false signale un arrêt demandé.
func (w *DeadLetterWorker) handleUntilDone(ctx context.Context, msg kafka.Message) bool {
	for attempt := 1; ; attempt++ {
		err := w.Handle(ctx, msg)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		log.Error().Err(err).Int64("offset", msg.Offset).Int("retry", attempt).Msg("❌ Traitement de la lettre morte échoué, nouvelle tentative")
		if err := w.sleep(ctx, w.backoff(attempt)); err != nil {
			return false
		}
	}
}

// Handle traite un message ; une erreur signifie qu'il ne faut pas le commiter.
func (w *DeadLetterWorker) Handle(ctx context.Context, msg kafka.Message) error {
	var dl models.WebhookDeadLetter
	if err := json.Unmarshal(msg.Value, &dl); err != nil {
		dl = models.WebhookDeadLetter{
			EventID:   string(msg.Key),
			Kind:      models.DeadLetterPermanent,
			Reason:    "message illisible",
			Attempts:  1,
			CreatedAt: time.Now().UTC(),
		}
		return w.archive.Record(ctx, dl)
	}

	// sans session il n'y a rien à rejouer ; l'entrée est archivée intacte
	if dl.Kind == models.DeadLetterPermanent || dl.SessionID == "" {
		dl.Kind = models.DeadLetterPermanent
		return w.archive.Record(ctx, dl)
	}

	if err := w.sleep(ctx, w.backoff(dl.Attempts)); err != nil {
		return err
	}

	out := w.reconciler.ReconcileSession(ctx, dl.SessionID)
	switch {
	case !out.Failed():
		log.Info().
			Str("session_id", dl.SessionID).
			Str("order_id", out.OrderID).
			Str("outcome", string(out.Kind)).
			Int("attempts", dl.Attempts+1).
			Msg("✅ Webhook rejoué avec succès")
		return nil
	case out.Kind == orders.OutcomePermanent:
		dl.Kind = models.DeadLetterPermanent
		dl.Reason = out.Err.Error()
		dl.Attempts++
		return w.archive.Record(ctx, dl)
	}

	dl.Attempts++
	dl.Reason = out.Err.Error()
	if dl.Attempts >= w.cfg.MaxAttempts {
		dl.Exhausted = true
		return w.archive.Record(ctx, dl)
	}
	return w.requeue.Record(ctx, dl)
}

func (w *DeadLetterWorker) backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > 16 {
		attempts = 16
	}
	d := w.cfg.BaseBackoff << (attempts - 1)
	if d <= 0 || d > w.cfg.MaxBackoff {
		d = w.cfg.MaxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
