// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package experiments defines the narrow interface the Query Executor
// consults to attach A/B-test variant information to a search, without
// owning the experiment/A-B testing store itself — that store, and the
// traffic-split assignment logic it would drive, is a thin external
// collaborator out of this module's scope.
package experiments

// AssignmentMethod records which identifier decided an assignment, in
// priority order: a stable user token beats a session identifier, which
// beats falling back to the query's own identifier.
type AssignmentMethod string

const (
	MethodUserToken AssignmentMethod = "user_token"
	MethodSessionID AssignmentMethod = "session_id"
	MethodQueryID   AssignmentMethod = "query_id"
)

// Assignment is the variant a request was bucketed into for one
// experiment, and which identifier decided it.
type Assignment struct {
	ExperimentID string
	Arm          string
	Method       AssignmentMethod
}

// Assigner resolves the active experiment (if any) for a tenant and
// index, and buckets a request into an arm. Implementations own their
// own experiment configuration and traffic-split logic; this package
// ships only the interface and a no-op implementation.
type Assigner interface {
	// Assign returns the assignment for indexName, if an experiment is
	// currently running against it. ok is false when no experiment
	// applies, in which case the query path runs unmodified.
	Assign(tenant, indexName string, userToken, sessionID *string, queryID string) (assignment Assignment, ok bool)
}

// NoopAssigner never has an experiment to assign into. It is the default
// Assigner until a real experiment store is wired in from outside this
// module.
type NoopAssigner struct{}

// Assign always reports no active experiment.
func (NoopAssigner) Assign(tenant, indexName string, userToken, sessionID *string, queryID string) (Assignment, bool) {
	return Assignment{}, false
}
