// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridlhq/flapjack/internal/analytics"
	"github.com/gridlhq/flapjack/internal/memory"
	"github.com/gridlhq/flapjack/internal/middleware"
	"github.com/gridlhq/flapjack/internal/replication"
)

// Router assembles the Algolia-compatible HTTP surface on top of a Handler.
// The analytics and replication fields are optional: a node running without
// an analytics pipeline or without configured peers still serves the core
// index/search/settings/synonyms/rules/keys routes, it just mounts fewer
// route groups.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	memory        *memory.Observer

	analyticsHandler   *AnalyticsHandler
	replicationHandler *ReplicationHandler
}

// NewRouter builds a Router. chiMiddleware and memoryObserver may not be
// nil; analyticsQueries and replicationManager may be nil to disable their
// route groups.
func NewRouter(handler *Handler, chiMiddleware *ChiMiddleware, memoryObserver *memory.Observer, analyticsQueries *analytics.QueryEngine, replicationManager *replication.Manager) *Router {
	router := &Router{
		handler:       handler,
		chiMiddleware: chiMiddleware,
		memory:        memoryObserver,
	}
	if analyticsQueries != nil {
		router.analyticsHandler = NewAnalyticsHandler(analyticsQueries)
	}
	if replicationManager != nil {
		router.replicationHandler = NewReplicationHandler(replicationManager, handler.tenants)
	}
	return router
}

// SetupChi builds the full route tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(router.chiMiddleware.RateLimit())
	r.Use(APISecurityHeaders())
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Compression)
	r.Use(CriticalMemoryAdmission(router.memory))

	r.Get("/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/1", func(r chi.Router) {
		r.Use(router.handler.Authenticate)

		r.Post("/events", router.handler.Insights)

		r.Route("/indexes/{name}", func(r chi.Router) {
			r.With(MemoryAdmission(router.memory)).Post("/batch", router.handler.Batch)
			r.Post("/query", router.handler.Search)

			r.With(MemoryAdmission(router.memory)).Put("/{objectID}", router.handler.PutObject)
			r.Get("/{objectID}", router.handler.GetObject)
			r.With(MemoryAdmission(router.memory)).Delete("/{objectID}", router.handler.DeleteObject)

			r.Get("/task/{taskID}", router.handler.Task)

			r.Get("/settings", router.handler.GetSettings)
			r.With(MemoryAdmission(router.memory)).Post("/settings", router.handler.PostSettings)

			r.Route("/synonyms", func(r chi.Router) {
				r.Post("/search", router.handler.SearchSynonyms)
				r.Get("/{objectID}", router.handler.GetSynonym)
				r.With(MemoryAdmission(router.memory)).Put("/{objectID}", router.handler.PutSynonym)
				r.With(MemoryAdmission(router.memory)).Delete("/{objectID}", router.handler.DeleteSynonym)
			})

			r.Route("/rules", func(r chi.Router) {
				r.Post("/search", router.handler.SearchRules)
				r.Get("/{objectID}", router.handler.GetRule)
				r.With(MemoryAdmission(router.memory)).Put("/{objectID}", router.handler.PutRule)
				r.With(MemoryAdmission(router.memory)).Delete("/{objectID}", router.handler.DeleteRule)
			})
		})

		r.Route("/keys", func(r chi.Router) {
			r.With(router.handler.RequireAdmin).Post("/", router.handler.CreateKey)
			r.With(router.handler.RequireAdmin).Get("/", router.handler.ListKeys)
			r.With(router.handler.RequireAdmin).Delete("/{keyID}", router.handler.DeleteKey)
		})
	})

	if router.analyticsHandler != nil {
		r.Route("/2", func(r chi.Router) {
			r.Use(router.handler.Authenticate)
			r.Get("/searches", router.analyticsHandler.TopSearches)
			r.Get("/searches/count", router.analyticsHandler.SearchCount)
			r.Get("/searches/noResultRate", router.analyticsHandler.NoResultRate)
			r.Get("/clicks/clickThroughRate", router.analyticsHandler.ClickThroughRate)
			r.Get("/clicks/objectIDs", router.analyticsHandler.TopClickedObjectIDs)
			r.Get("/conversions/conversionRate", router.analyticsHandler.ConversionRate)
			r.Get("/filters", router.analyticsHandler.TopFilterAttributes)
			r.Get("/geography", router.analyticsHandler.GeoBreakdown)
			r.Get("/devices", router.analyticsHandler.DeviceBreakdown)
			r.Get("/users/count", router.analyticsHandler.UserCount)
			r.Get("/status", router.analyticsHandler.Status)
		})
	}

	if router.replicationHandler != nil {
		r.Route("/internal", func(r chi.Router) {
			r.Post("/replicate", router.replicationHandler.Replicate)
			r.Post("/ops", router.replicationHandler.Ops)
			r.Get("/status", router.replicationHandler.Status)
		})
	}

	return r
}
