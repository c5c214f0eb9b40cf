/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"fmt"
	"reflect"

	"github.com/tomoncle/niketan/database"
	"github.com/tomoncle/niketan/metrics"
	"github.com/tomoncle/niketan/session"
	"github.com/tomoncle/niketan/types"
)

// Provider builds repositories on first request and caches them for the
// lifetime of one unit of work. It is not safe for concurrent use.
type Provider struct {
	factories *Factories
	session   *session.Session
	cache     map[reflect.Type]any
	metrics   *metrics.Collector
	logger    database.Logger
}

// NewProvider returns an unbound provider resolving constructors from f.
// A nil f resolves entity repositories through the default constructor only.
func NewProvider(f *Factories) *Provider {
	return &Provider{
		factories: f,
		cache:     make(map[reflect.Type]any),
		logger:    database.GetLogger(),
	}
}

// Bind sets the session every repository is built with. A provider is bound
// once.
func (p *Provider) Bind(s *session.Session) error {
	if s == nil {
		return fmt.Errorf("%w: provider requires a session", types.ErrInvalidArgument)
	}
	if p.session != nil {
		return types.ErrAlreadyBound
	}
	p.session = s
	return nil
}

func (p *Provider) Bound() bool { return p.session != nil }

// Session returns the bound session, nil while unbound.
func (p *Provider) Session() *session.Session { return p.session }

func (p *Provider) SetMetrics(c *metrics.Collector) { p.metrics = c }

func (p *Provider) SetLogger(logger database.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Cached reports whether an instance is cached for type R.
func Cached[R any](p *Provider) bool {
	_, ok := p.cache[reflect.TypeFor[R]()]
	return ok
}

func (p *Provider) ready() error {
	if p.session == nil {
		return types.ErrProviderUnbound
	}
	return p.session.Err()
}

// GetRepository returns the cached R or builds one. The constructor is the
// first non-nil ctor if given, else the one registered for R.
func GetRepository[R any](p *Provider, ctor ...Constructor) (R, error) {
	var explicit Constructor
	for _, c := range ctor {
		if c != nil {
			explicit = c
			break
		}
	}
	typ := reflect.TypeFor[R]()
	return resolve[R](p, typ, func() (Constructor, bool) {
		if explicit != nil {
			return explicit, true
		}
		return p.factories.lookup(typ)
	})
}

// GetRepositoryForEntity returns the repository of entity type T, using the
// registered constructor for T or the default repository.
func GetRepositoryForEntity[T any](p *Provider) (Repository[T], error) {
	return resolve[Repository[T]](p, reflect.TypeFor[Repository[T]](), func() (Constructor, bool) {
		return GetConstructorForEntity[T](p.factories), true
	})
}

// SetRepository caches instance as the R of this provider, replacing any
// previous one. No constructor runs.
func SetRepository[R any](p *Provider, instance R) error {
	if p.session != nil {
		if err := p.session.Err(); err != nil {
			return err
		}
	}
	typ := reflect.TypeFor[R]()
	p.cache[typ] = instance
	p.metrics.ObserveResolution(metrics.ResolutionSubstituted)
	p.logger.Debug("Repository substituted", "type", typ.String())
	return nil
}

func resolve[R any](p *Provider, typ reflect.Type, find func() (Constructor, bool)) (R, error) {
	var zero R
	if err := p.ready(); err != nil {
		return zero, err
	}
	if cached, ok := p.cache[typ]; ok {
		repo, ok := cached.(R)
		if !ok {
			p.metrics.ObserveResolution(metrics.ResolutionFailed)
			return zero, fmt.Errorf("%w: cached %T is not %s", types.ErrTypeMismatch, cached, typ)
		}
		p.metrics.ObserveResolution(metrics.ResolutionHit)
		return repo, nil
	}

	ctor, ok := find()
	if !ok || ctor == nil {
		p.metrics.ObserveResolution(metrics.ResolutionFailed)
		return zero, fmt.Errorf("%w: no repository constructor for %s", types.ErrNotImplemented, typ)
	}
	built, err := ctor(p.session)
	if err != nil {
		p.metrics.ObserveResolution(metrics.ResolutionFailed)
		return zero, fmt.Errorf("build repository %s: %w", typ, err)
	}
	repo, ok := built.(R)
	if !ok {
		p.metrics.ObserveResolution(metrics.ResolutionFailed)
		return zero, fmt.Errorf("%w: constructor for %s returned %T", types.ErrTypeMismatch, typ, built)
	}
	p.cache[typ] = repo
	p.metrics.ObserveResolution(metrics.ResolutionMiss)
	p.logger.Debug("Repository created", "type", typ.String(), "session", p.session.ID())
	return repo, nil
}
