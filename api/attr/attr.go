// Package attr is the file-like text interface to the kennel: reading
// the attribute lists every dog, writing "breed,age,flag" appends one.
package attr

import (
	"bytes"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"kennel/domain/kennel"
	"kennel/infra/metrics"
	"kennel/service"
)

// EntryBytes bounds a write payload; longer input is truncated.
const EntryBytes = 64

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNoMemory        = service.ErrNoMemory
)

// Kennel is the part of the service the attribute needs.
type Kennel interface {
	Insert(breed string, age int, trainable bool) error
	Snapshot() iter.Seq[kennel.View]
}

type Attribute struct {
	k       Kennel
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New returns the attribute for k. m may be nil.
func New(k Kennel, m *metrics.Metrics, log zerolog.Logger) *Attribute {
	return &Attribute{k: k, metrics: m, log: log}
}

// Show writes one "<breed> <age> <true|false>" line per dog, oldest
// first. An empty kennel writes nothing.
func (a *Attribute) Show(w io.Writer) (int, error) {
	a.log.Debug().Msg("show requested")

	var buf bytes.Buffer
	for v := range a.k.Snapshot() {
		buf.WriteString(v.String())
		buf.WriteByte('\n')
	}
	if buf.Len() == 0 {
		return 0, nil
	}
	return w.Write(buf.Bytes())
}

// Store parses p and appends the dog it describes. On success it
// reports the whole input as accepted.
func (a *Attribute) Store(p []byte) (int, error) {
	a.log.Debug().Msg("store requested")

	v, err := Parse(p)
	if err != nil {
		a.reject("invalid")
		return 0, err
	}
	if err := a.k.Insert(v.Breed, v.Age, v.Trainable); err != nil {
		if errors.Is(err, ErrNoMemory) {
			a.reject("nomem")
		}
		return 0, err
	}
	return len(p), nil
}

func (a *Attribute) reject(reason string) {
	if a.metrics != nil {
		a.metrics.Rejected.WithLabelValues(reason).Inc()
	}
}

// Parse decodes "breed,age,flag". The input is truncated to EntryBytes
// and a trailing newline is ignored. age is decimal; flag is binary and
// any non-zero value means trainable.
func Parse(p []byte) (kennel.View, error) {
	if len(p) > EntryBytes {
		p = p[:EntryBytes]
	}
	s := strings.TrimSuffix(string(p), "\n")

	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return kennel.View{}, errors.Wrapf(ErrInvalidArgument, "want 3 fields, got %d", len(fields))
	}

	age, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return kennel.View{}, errors.Wrapf(ErrInvalidArgument, "age %q", fields[1])
	}
	flag, err := strconv.ParseInt(fields[2], 2, 32)
	if err != nil {
		return kennel.View{}, errors.Wrapf(ErrInvalidArgument, "training flag %q", fields[2])
	}

	return kennel.View{
		Breed:     strings.ToValidUTF8(fields[0], ""),
		Age:       int(age),
		Trainable: flag != 0,
	}, nil
}
