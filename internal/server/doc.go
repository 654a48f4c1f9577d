// Package server provides the HTTP surface of the scanning engine: the
// scan API, Kubernetes health probes, and a dedicated Prometheus metrics
// listener.
package server
