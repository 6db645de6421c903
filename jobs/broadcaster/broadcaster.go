package broadcaster

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"kennel/infra/journal"
	"kennel/infra/metrics"
	"kennel/infra/sequence"
)

const eventVersion = 1

// Event describes one eviction. It is the JSON payload stored in the
// journal and published to Kafka.
type Event struct {
	V         int       `json:"v"`
	Type      string    `json:"type"`
	Seq       uint64    `json:"seq"`
	Breed     string    `json:"breed"`
	Age       int       `json:"age"`
	Trainable bool      `json:"trainable"`
	At        time.Time `json:"at"`
}

// Publisher delivers a payload to the outside world.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

type Config struct {
	Interval       time.Duration
	QueueSize      int
	PublishTimeout time.Duration
}

// Broadcaster persists submitted events to the journal and replays
// pending journal records to the publisher on every tick.
type Broadcaster struct {
	journal   *journal.Journal
	publisher Publisher
	seq       *sequence.Sequencer
	metrics   *metrics.Metrics
	log       zerolog.Logger
	cfg       Config

	events chan Event
	closed atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

// New creates a broadcaster. publisher may be nil, in which case events
// are only journaled. m may be nil.
func New(j *journal.Journal, publisher Publisher, cfg Config, m *metrics.Metrics, log zerolog.Logger) (*Broadcaster, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 250 * time.Millisecond
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}

	last, err := j.LastSeq()
	if err != nil {
		return nil, errors.Wrap(err, "resume journal sequence")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Broadcaster{
		journal:   j,
		publisher: publisher,
		seq:       sequence.New(last),
		metrics:   m,
		log:       log,
		cfg:       cfg,
		events:    make(chan Event, cfg.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// ------------------------------------------------
// SUBMIT
// ------------------------------------------------

// Submit queues ev without blocking. It assigns the event's sequence
// number and reports false when the queue is full or the broadcaster is
// closed.
func (b *Broadcaster) Submit(ev Event) bool {
	if b.closed.Load() {
		return false
	}
	ev.V = eventVersion
	if ev.Type == "" {
		ev.Type = "evicted"
	}
	ev.Seq = b.seq.Next()
	select {
	case b.events <- ev:
		return true
	default:
		if b.metrics != nil {
			b.metrics.EventsDropped.Inc()
		}
		return false
	}
}

// ------------------------------------------------
// START LOOP
// ------------------------------------------------

func (b *Broadcaster) Start() {
	b.log.Info().Msg("broadcaster started")

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ticker := time.NewTicker(b.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-b.ctx.Done():
				return
			case ev := <-b.events:
				b.persist(ev)
			case <-ticker.C:
				b.replayOnce(b.ctx)
			}
		}
	}()
}

func (b *Broadcaster) persist(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.log.Error().Err(err).Uint64("seq", ev.Seq).Msg("encode event")
		return
	}
	if err := b.journal.Append(ev.Seq, payload); err != nil {
		b.log.Error().Err(err).Uint64("seq", ev.Seq).Msg("journal append")
	}
}

// ------------------------------------------------
// REPLAY LOGIC
// ------------------------------------------------

// replayOnce publishes NEW records and retries SENT ones that were
// never acknowledged. It stops at the first failure so that events keep
// their order; the next tick retries.
func (b *Broadcaster) replayOnce(ctx context.Context) {
	if b.publisher == nil {
		return
	}

	var pending []journal.Record
	for _, state := range []journal.State{journal.StateSent, journal.StateNew} {
		err := b.journal.ScanByState(state, func(rec journal.Record) error {
			pending = append(pending, rec)
			return nil
		})
		if err != nil {
			b.log.Error().Err(err).Msg("journal scan")
			return
		}
	}
	slices.SortFunc(pending, func(x, y journal.Record) int {
		return cmp.Compare(x.Seq, y.Seq)
	})

	for _, rec := range pending {
		if err := b.journal.UpdateState(rec.Seq, journal.StateSent, rec.Retries+1); err != nil {
			b.log.Error().Err(err).Uint64("seq", rec.Seq).Msg("mark sent")
			return
		}

		pctx, cancel := context.WithTimeout(ctx, b.cfg.PublishTimeout)
		err := b.publisher.Publish(pctx, []byte(strconv.FormatUint(rec.Seq, 10)), rec.Payload)
		cancel()
		if err != nil {
			b.log.Warn().Err(err).Uint64("seq", rec.Seq).Msg("publish failed, retrying later")
			return
		}

		if err := b.journal.UpdateState(rec.Seq, journal.StateAcked, rec.Retries+1); err != nil {
			b.log.Error().Err(err).Uint64("seq", rec.Seq).Msg("mark acked")
			return
		}
		if err := b.journal.Delete(rec.Seq); err != nil {
			b.log.Error().Err(err).Uint64("seq", rec.Seq).Msg("delete acked")
		}
		if b.metrics != nil {
			b.metrics.Published.Inc()
		}
	}
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

// Close stops the loop, journals every queued event and closes the
// publisher. The journal itself stays open; its owner closes it.
func (b *Broadcaster) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.cancel()
	b.wg.Wait()

	for {
		select {
		case ev := <-b.events:
			b.persist(ev)
			continue
		default:
		}
		break
	}

	if b.publisher != nil {
		return b.publisher.Close()
	}
	return nil
}
