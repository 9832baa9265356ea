package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/orders"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	msgs      []kafka.Message
	committed []int64
	errs      []error
}

func (f *fakeSource) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return kafka.Message{}, err
	}
	if len(f.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeSource) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeSource) Close() error { return nil }

type scriptedReconciler struct {
	outcomes []orders.Outcome
	calls    []string
}

func (s *scriptedReconciler) ReconcileSession(_ context.Context, sessionID string) orders.Outcome {
	s.calls = append(s.calls, sessionID)
	out := s.outcomes[0]
	s.outcomes = s.outcomes[1:]
	return out
}

// memSink échoue sur les failures premiers appels, puis toujours si err est posé.
type memSink struct {
	got      []models.WebhookDeadLetter
	err      error
	failures int
	calls    int
}

func (m *memSink) Record(_ context.Context, dl models.WebhookDeadLetter) error {
	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("mongo indisponible")
	}
	if m.err != nil {
		return m.err
	}
	m.got = append(m.got, dl)
	return nil
}

func message(t *testing.T, offset int64, dl models.WebhookDeadLetter) kafka.Message {
	body, err := json.Marshal(dl)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Key: []byte(dl.SessionID), Value: body}
}

func newWorker(src MessageSource, rec Reconciler, requeue, archive Sink) *DeadLetterWorker {
	w := NewDeadLetterWorker(src, rec, requeue, archive, Config{MaxAttempts: 3})
	w.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return w
}

func TestReplaySucceeds(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{
		message(t, 1, models.WebhookDeadLetter{SessionID: "cs_1", Kind: models.DeadLetterRetryable, Attempts: 1}),
	}}
	rec := &scriptedReconciler{outcomes: []orders.Outcome{{Kind: orders.OutcomeCreated, OrderID: "ORD-1", SessionID: "cs_1"}}}
	requeue, archive := &memSink{}, &memSink{}

	require.NoError(t, newWorker(src, rec, requeue, archive).Run(context.Background()))

	assert.Equal(t, []string{"cs_1"}, rec.calls)
	assert.Equal(t, []int64{1}, src.committed)
	assert.Empty(t, requeue.got)
	assert.Empty(t, archive.got)
}

func TestRetryableIsRequeuedThenArchivedWhenExhausted(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{
		message(t, 1, models.WebhookDeadLetter{SessionID: "cs_1", Kind: models.DeadLetterRetryable, Attempts: 1}),
		message(t, 2, models.WebhookDeadLetter{SessionID: "cs_2", Kind: models.DeadLetterRetryable, Attempts: 2}),
	}}
	boom := errors.New("mongo indisponible")
	rec := &scriptedReconciler{outcomes: []orders.Outcome{
		{Kind: orders.OutcomeRetryable, SessionID: "cs_1", Err: boom},
		{Kind: orders.OutcomeRetryable, SessionID: "cs_2", Err: boom},
	}}
	requeue, archive := &memSink{}, &memSink{}

	require.NoError(t, newWorker(src, rec, requeue, archive).Run(context.Background()))

	require.Len(t, requeue.got, 1)
	assert.Equal(t, "cs_1", requeue.got[0].SessionID)
	assert.Equal(t, 2, requeue.got[0].Attempts)
	assert.False(t, requeue.got[0].Exhausted)

	require.Len(t, archive.got, 1)
	assert.Equal(t, "cs_2", archive.got[0].SessionID)
	assert.Equal(t, 3, archive.got[0].Attempts)
	assert.True(t, archive.got[0].Exhausted)
	assert.Equal(t, boom.Error(), archive.got[0].Reason)
	assert.Equal(t, []int64{1, 2}, src.committed)
}

func TestPermanentEntriesAreArchivedWithoutReplay(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{
		message(t, 1, models.WebhookDeadLetter{SessionID: "cs_1", Kind: models.DeadLetterPermanent, Attempts: 1}),
		{Offset: 2, Key: []byte("evt_x"), Value: []byte("{pas du json")},
	}}
	rec := &scriptedReconciler{}
	requeue, archive := &memSink{}, &memSink{}

	require.NoError(t, newWorker(src, rec, requeue, archive).Run(context.Background()))

	assert.Empty(t, rec.calls)
	require.Len(t, archive.got, 2)
	assert.Equal(t, models.DeadLetterPermanent, archive.got[1].Kind)
	assert.Equal(t, "evt_x", archive.got[1].EventID)
}

func TestReplayTurnsPermanent(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{
		message(t, 1, models.WebhookDeadLetter{SessionID: "cs_1", Kind: models.DeadLetterRetryable, Attempts: 1}),
	}}
	rec := &scriptedReconciler{outcomes: []orders.Outcome{{Kind: orders.OutcomePermanent, SessionID: "cs_1", Err: errors.New("session inconnue")}}}
	requeue, archive := &memSink{}, &memSink{}

	require.NoError(t, newWorker(src, rec, requeue, archive).Run(context.Background()))

	require.Len(t, archive.got, 1)
	assert.Equal(t, models.DeadLetterPermanent, archive.got[0].Kind)
	assert.Empty(t, requeue.got)
}

func TestFailedArchiveIsRetriedBeforeMovingOn(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{
		message(t, 7, models.WebhookDeadLetter{SessionID: "cs_1", Kind: models.DeadLetterPermanent}),
		message(t, 8, models.WebhookDeadLetter{SessionID: "cs_2", Kind: models.DeadLetterPermanent}),
	}}
	archive := &memSink{failures: 1}

	require.NoError(t, newWorker(src, &scriptedReconciler{}, &memSink{}, archive).Run(context.Background()))

	assert.Equal(t, []int64{7, 8}, src.committed)
	require.Len(t, archive.got, 2)
	assert.Equal(t, "cs_1", archive.got[0].SessionID)
	assert.Equal(t, "cs_2", archive.got[1].SessionID)
	assert.Equal(t, 3, archive.calls)
}

func TestStopWhileArchiveIsDownLeavesMessageUncommitted(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{
		message(t, 7, models.WebhookDeadLetter{SessionID: "cs_1", Kind: models.DeadLetterPermanent}),
		message(t, 8, models.WebhookDeadLetter{SessionID: "cs_2", Kind: models.DeadLetterPermanent}),
	}}
	archive := &memSink{err: errors.New("mongo indisponible")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := newWorker(src, &scriptedReconciler{}, &memSink{}, archive)
	sleeps := 0
	w.sleep = func(ctx context.Context, _ time.Duration) error {
		sleeps++
		if sleeps == 3 {
			cancel()
		}
		return ctx.Err()
	}

	require.NoError(t, w.Run(ctx))
	assert.Empty(t, src.committed)
	assert.Equal(t, 3, archive.calls)
	assert.Len(t, src.msgs, 1, "le message suivant n'est pas lu tant que le premier n'est pas traité")
}

func TestEntryWithoutSessionIsArchivedAsIs(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{
		message(t, 3, models.WebhookDeadLetter{
			EventID:   "evt_bad",
			EventType: "checkout.session.completed",
			Kind:      models.DeadLetterPermanent,
			Reason:    "session illisible dans l'événement",
			Attempts:  1,
		}),
	}}
	rec := &scriptedReconciler{}
	archive := &memSink{}

	require.NoError(t, newWorker(src, rec, &memSink{}, archive).Run(context.Background()))

	assert.Empty(t, rec.calls)
	require.Len(t, archive.got, 1)
	got := archive.got[0]
	assert.Equal(t, "evt_bad", got.EventID)
	assert.Equal(t, "checkout.session.completed", got.EventType)
	assert.Equal(t, "session illisible dans l'événement", got.Reason)
	assert.Equal(t, models.DeadLetterPermanent, got.Kind)
	assert.Equal(t, []int64{3}, src.committed)
}

func TestRunGivesUpAfterRepeatedReadErrors(t *testing.T) {
	readErr := errors.New("broker injoignable")
	src := &fakeSource{errs: []error{readErr, readErr, readErr, readErr}}

	err := newWorker(src, &scriptedReconciler{}, &memSink{}, &memSink{}).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, readErr)
}

func TestBackoffIsCapped(t *testing.T) {
	w := NewDeadLetterWorker(&fakeSource{}, &scriptedReconciler{}, &memSink{}, &memSink{}, Config{BaseBackoff: time.Second, MaxBackoff: 10 * time.Second})
	assert.Equal(t, time.Second, w.backoff(0))
	assert.Equal(t, 4*time.Second, w.backoff(3))
	assert.Equal(t, 10*time.Second, w.backoff(50))
}
