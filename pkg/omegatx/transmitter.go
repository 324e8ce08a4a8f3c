package omegatx

import (
	"context"
	"fmt"
	"strings"
)

// Transmitter is the lifecycle shared by both clients:
// construct, Connect, Get (repeatable), Close.
type Transmitter interface {
	Connect(ctx context.Context) error
	Get(ctx context.Context) (Reading, error)
	Close() error
}

var (
	_ Transmitter = (*Barometer)(nil)
	_ Transmitter = (*Hygrometer)(nil)
)

// Model selects a transmitter client.
type Model string

const (
	ModelIBTHX Model = "ibthx" // iBTHX-W, TCP command protocol
	ModelITHX  Model = "ithx"  // iTHX-W, HTML status page
)

// Models lists the supported transmitter models.
func Models() []Model {
	return []Model{ModelIBTHX, ModelITHX}
}

// ParseModel maps a model name to a Model, ignoring case.
func ParseModel(s string) (Model, error) {
	switch m := Model(strings.ToLower(strings.TrimSpace(s))); m {
	case ModelIBTHX, ModelITHX:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
	}
}

// New creates the client for model.
func New(model Model, address string, opts ...Option) (Transmitter, error) {
	switch model {
	case ModelIBTHX:
		b, err := NewBarometer(address, opts...)
		if err != nil {
			return nil, err
		}
		return b, nil
	case ModelITHX:
		h, err := NewHygrometer(address, opts...)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, string(model))
	}
}

// With connects tx, runs fn and closes tx on every exit path, including a
// panic in fn. If Connect fails, tx is torn down and the connect error is
// returned without calling fn. A Close error is reported only when fn
// succeeded.
func With(ctx context.Context, tx Transmitter, fn func(context.Context, Transmitter) error) (err error) {
	if err := tx.Connect(ctx); err != nil {
		_ = tx.Close()
		return err
	}
	defer func() {
		if cerr := tx.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close: %w", cerr)
		}
	}()

	return fn(ctx, tx)
}

// ReadOnce performs a single connect, Get, close cycle.
func ReadOnce(ctx context.Context, tx Transmitter) (Reading, error) {
	var r Reading
	err := With(ctx, tx, func(ctx context.Context, tx Transmitter) error {
		var err error
		r, err = tx.Get(ctx)
		return err
	})
	return r, err
}
