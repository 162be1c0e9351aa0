// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package api is the thin HTTP adapter over the search core, speaking the
Algolia REST API's request/response shapes and routing conventions.

Key Components:

  - Router: chi route tree and middleware stack assembly (router.go)
  - Handler: request handlers for the /1 index-management and query surface
  - AnalyticsHandler: the /2 read-only aggregation surface, mounted only
    when a node is configured with an analytics pipeline
  - ReplicationHandler: the peer-only /internal surface, mounted only when
    a node is configured with replication peers
  - ResponseWriter: standardized JSON response and error formatting

Route Groups:

 1. /1/indexes/{name}: batch writes, query, object CRUD, task status,
    settings, synonyms, and query rules - the core Algolia-compatible
    surface every node serves.
 2. /1/keys: secured-key management, admin-key gated.
 3. /2/...: search/click/conversion/user-count analytics aggregations over
    the Analytics Pipeline's DuckDB-backed query engine.
 4. /internal/...: inbound replication (apply ops from a peer, serve a
    peer's catch-up read) and peer health status, never reached through
    the X-Algolia-API-Key middleware that guards /1 and /2.
 5. /health, /metrics: liveness and Prometheus scrape endpoints.

Authentication follows the Algolia convention: the X-Algolia-API-Key
header carries either a raw parent key (admin or search) or an
HMAC-signed secured key, resolved by Handler.Authenticate before any /1
or /2 route runs.
*/
package api
