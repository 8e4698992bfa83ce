package tagsync

import (
	"github.com/lyzr/explorer/common/config"
	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/metrics"
	"github.com/lyzr/explorer/common/models"
)

// Option configures a Synchronizer
type Option func(*Synchronizer)

// WithSerialQueue runs each session's backend calls one at a time, in the
// order the mutations were made. Without it mutations run concurrently and
// the last reconciliation wins.
func WithSerialQueue() Option {
	return func(s *Synchronizer) {
		s.serial = true
	}
}

// WithReconciler sets how live notifications update an open session.
// Defaults to ReloadReconciler.
func WithReconciler(r Reconciler) Option {
	return func(s *Synchronizer) {
		if r != nil {
			s.reconciler = r
		}
	}
}

// WithOnError registers a hook called once for every rolled-back mutation
func WithOnError(fn func(Result)) Option {
	return func(s *Synchronizer) {
		s.onError = fn
	}
}

// WithOnChange registers a hook called with a snapshot after every change
// to a session's list
func WithOnChange(fn func(recordID string, tags []models.Tag)) Option {
	return func(s *Synchronizer) {
		s.onChange = fn
	}
}

// WithMetrics counts mutation outcomes and received events
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Synchronizer) {
		s.metrics = m
	}
}

// FromConfig turns RECONCILE_STRATEGY and TAG_SERIAL_QUEUE into options
func FromConfig(cfg config.TagConfig, log *logger.Logger) []Option {
	var opts []Option
	if cfg.ReconcileStrategy == "patch" {
		opts = append(opts, WithReconciler(NewPatchReconciler(log)))
	}
	if cfg.SerialQueue {
		opts = append(opts, WithSerialQueue())
	}
	return opts
}
