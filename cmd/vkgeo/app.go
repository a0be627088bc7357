package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"vkgeo/pkg/auth"
	"vkgeo/pkg/cache"
	"vkgeo/pkg/config"
	"vkgeo/pkg/friends"
	"vkgeo/pkg/logger"
	"vkgeo/pkg/metrics"
	"vkgeo/pkg/paging"
	"vkgeo/pkg/photos"
	"vkgeo/pkg/pipeline"
	"vkgeo/pkg/vk"
)

// app holds the components shared by the commands
type app struct {
	cfg      *config.Config
	log      logger.Logger
	metrics  *metrics.Metrics
	store    cache.Store
	pipeline *pipeline.Pipeline
	friends  *friends.Lister
}

// tokenSource resolves a stored access token by account name
type tokenSource interface {
	Token(name string) (string, error)
}

// newApp wires the VK client, cache and pipeline from cfg
func newApp(cfg *config.Config) (*app, error) {
	log := logger.GetLogger()

	if cfg.VK.AccessToken == "" {
		manager, err := auth.NewManager()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		token, err := resolveToken(manager, accountName)
		if err != nil {
			return nil, err
		}
		cfg.VK.AccessToken = token
	}

	m, err := metrics.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	store, err := cache.New(cfg.Cache, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	client := vk.NewClientFromConfig(cfg, m, log)
	fetcher := paging.NewFetcher(client, log, m)

	p := pipeline.New(
		photos.NewLister(fetcher, cfg.Fetch.PageSize, log),
		photos.NewBatchEnricher(client, log),
		store,
		pipeline.WithBatchSize(cfg.Fetch.BatchSize),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(m),
	)

	return &app{
		cfg:      cfg,
		log:      log,
		metrics:  m,
		store:    store,
		pipeline: p,
		friends:  friends.NewLister(fetcher, cfg.Fetch.FriendsPageSize, log),
	}, nil
}

// locate runs the pipeline for one profile, skipping the cache on refresh
func (a *app) locate(ctx context.Context, profileID string, refresh bool) *pipeline.Outcome {
	if refresh {
		return a.pipeline.Refresh(ctx, profileID)
	}
	return a.pipeline.Locate(ctx, profileID)
}

// Close releases the cache backend
func (a *app) Close() error {
	if closer, ok := a.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// resolveToken returns the stored token for name, or a hint on how to add one
func resolveToken(src tokenSource, name string) (string, error) {
	token, err := src.Token(name)
	if err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			return "", fmt.Errorf("no VK access token found; run 'vkgeo auth login' or set %s", auth.TokenEnv)
		}
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("stored access token is empty; run 'vkgeo auth login'")
	}
	return token, nil
}
