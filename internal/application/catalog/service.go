// Package catalog serves product reads through the list cache and keeps the cache honest on writes.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/uow"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

const (
	catalogService       = "catalog-service"
	useCaseProductList   = "catalog.list"
	useCaseProductGet    = "catalog.get"
	useCaseProductCreate = "catalog.create"
	useCaseProductUpdate = "catalog.update"
	useCaseProductDelete = "catalog.delete"
	listFlightKey        = "products"
)

type Service struct {
	repo  domain.Repository
	cache domain.ListCache
	ids   application.IDGenerator
	group singleflight.Group
	ins   application.Instruments
}

// NewService wires the catalog. cache may be nil, in which case every list hits storage.
func NewService(store uow.Store, cache domain.ListCache, ids application.IDGenerator, tel observability.Observability) *Service {
	return &Service{
		repo:  store.Repositories().Products,
		cache: cache,
		ids:   ids,
		ins:   application.NewInstruments(tel, catalogService),
	}
}

// List reads through the cache. Concurrent misses share a single storage read.
func (s *Service) List(ctx context.Context) (_ []domain.Product, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseProductList, "ListProducts")
	defer run.Finish(&err)

	if s.cache != nil {
		products, cerr := s.cache.Get(ctx)
		switch {
		case cerr == nil:
			s.ins.CacheResult("get", "hit")
			run.Status("CACHE_HIT")
			return products, nil
		case errors.Is(cerr, domain.ErrCacheMiss):
			s.ins.CacheResult("get", "miss")
		default:
			s.ins.CacheResult("get", "error")
			run.Log.Warn("cache_get_failed", observability.Err(cerr))
		}
	}

	v, err, shared := s.group.Do(listFlightKey, func() (any, error) {
		products, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(context.WithoutCancel(ctx), products); err != nil {
				s.ins.CacheResult("set", "error")
				run.Log.Warn("cache_set_failed", observability.Err(err))
			} else {
				s.ins.CacheResult("set", "ok")
			}
		}
		return products, nil
	})
	if err != nil {
		return nil, run.Fail("PRODUCT_LIST_FAILED", fmt.Errorf("catalog: list: %w", err))
	}
	run.Field("shared", shared)
	products := v.([]domain.Product)
	return append([]domain.Product(nil), products...), nil
}

func (s *Service) Get(ctx context.Context, id string) (_ *domain.Product, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseProductGet, "GetProduct", attribute.String("product.id", id))
	defer run.Finish(&err)

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, d domain.Draft) (_ *domain.Product, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseProductCreate, "CreateProduct", attribute.String("product.name", d.Name))
	defer run.Finish(&err)

	p, err := domain.New(s.ids.NewID(), d)
	if err != nil {
		return nil, run.Fail("VALIDATION_FAILED", err)
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, run.Fail(statusFor(err), err)
	}
	s.invalidate(run)
	run.Field("product_id", p.ID)
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, d domain.Draft) (_ *domain.Product, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseProductUpdate, "UpdateProduct", attribute.String("product.id", id))
	defer run.Finish(&err)

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}
	if err := p.Apply(d); err != nil {
		return nil, run.Fail("VALIDATION_FAILED", err)
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, run.Fail(statusFor(err), err)
	}
	s.invalidate(run)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, run := s.ins.Begin(ctx, useCaseProductDelete, "DeleteProduct", attribute.String("product.id", id))
	defer run.Finish(&err)

	if err := s.repo.Delete(ctx, id); err != nil {
		return run.Fail(statusFor(err), err)
	}
	s.invalidate(run)
	return nil
}

// invalidate runs after the write has been stored. A failure is logged and left to the TTL.
func (s *Service) invalidate(run *application.Run) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(context.WithoutCancel(run.Context())); err != nil {
		s.ins.CacheResult("invalidate", "error")
		run.Log.Warn("cache_invalidate_failed", observability.Err(err))
		return
	}
	s.ins.CacheResult("invalidate", "ok")
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		return "PRODUCT_CONFLICT"
	case errors.Is(err, domain.ErrInvalidProduct):
		return "VALIDATION_FAILED"
	default:
		return "REPOSITORY_FAILED"
	}
}
