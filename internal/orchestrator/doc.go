// Package orchestrator coordinates batch harvests and aggregates
// registry coverage into gap analysis, automation metrics, and
// recommendations. It is pure aggregation over the harvester and the
// registry, stateless aside from its run history.
package orchestrator
