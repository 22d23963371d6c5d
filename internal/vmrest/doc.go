// Package vmrest is a small client for the vCenter REST API.
//
// It opens and caches API sessions, shapes request payloads from flat
// parameter sets, probes whether a resource exists, and folds raw HTTP
// responses into a Result carrying changed and failed flags. Callers build
// their resource-specific behavior on top of these helpers.
package vmrest
