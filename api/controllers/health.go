package controllers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront-api/api/responses"
	"github.com/angelmondragon/storefront-api/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

const (
	envHeader        = "X-Storefront-Env"
	readinessTimeout = 2 * time.Second
)

// Pinger is a dependency the readiness check checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency in parallel under one deadline. Any
// failure answers 503 with the state of each dependency in "errors".
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			states = make(map[string]string, len(deps))
			g      errgroup.Group
		)
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			g.Go(func() error {
				err := dep.Ping(ctx)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					states[name] = "down"
					return fmt.Errorf("%s: %w", name, err)
				}
				states[name] = "up"
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "not ready: "+downList(states)).WithDetails(states))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "dependencies": states})
	}
}

func downList(states map[string]string) string {
	var down []string
	for name, state := range states {
		if state == "down" {
			down = append(down, name)
		}
	}
	sort.Strings(down)
	return strings.Join(down, ", ")
}
