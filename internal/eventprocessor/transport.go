// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package eventprocessor

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Transport is a publisher and subscriber pair sharing one backend.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	Name       string

	closers []func() error
}

// NewChannelTransport returns an in-process transport. Messages published
// while no handler is subscribed are lost, so the router must be running
// before ingestion starts.
func NewChannelTransport(bufferSize int64, logger watermill.LoggerAdapter) *Transport {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: bufferSize,
	}, logger)
	return &Transport{
		Publisher:  ch,
		Subscriber: ch,
		Name:       "gochannel",
		closers:    []func() error{ch.Close},
	}
}

// AddCloser registers fn to run on Close after the transport's own
// resources are released, for example an embedded server.
func (t *Transport) AddCloser(fn func() error) {
	t.closers = append([]func() error{fn}, t.closers...)
}

// Close releases the transport in reverse order of creation.
func (t *Transport) Close() error {
	var errs []error
	for i := len(t.closers) - 1; i >= 0; i-- {
		if err := t.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	t.closers = nil
	return errors.Join(errs...)
}
