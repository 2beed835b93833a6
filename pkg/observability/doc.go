/*
Package observability provides Prometheus instrumentation for the Parley
engine: turn throughput, function call outcomes, escalations by failure
category, slot cache behavior and live session count.
*/
package observability
