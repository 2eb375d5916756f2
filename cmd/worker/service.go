package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-api/pkg/logger"
)

type pinger func(context.Context) error

type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger    *logger.Logger
	RedisPing pinger
	PubSub    pinger
	Consumers map[string]consumer
}

type Service struct {
	logg      *logger.Logger
	deps      map[string]pinger
	consumers map[string]consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.RedisPing == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	return &Service{
		logg: params.Logger,
		deps: map[string]pinger{
			"redis":  params.RedisPing,
			"pubsub": params.PubSub,
		},
		consumers: params.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, name := range []string{"redis", "pubsub"} {
		if err := s.deps[name](ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run blocks until ctx is canceled or any consumer exits.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	errCh := make(chan error, len(s.consumers))
	for name, c := range s.consumers {
		name, c := name, c
		go func() {
			if err := c.Run(ctx); err != nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
				return
			}
			errCh <- nil
		}()
	}

	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "consumer stopped unexpectedly", err)
		}
		return err
	}
}
