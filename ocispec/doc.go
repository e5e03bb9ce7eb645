// Package ocispec translates a concrete command and its resource limits
// into a declarative OCI runtime configuration consumed by the external
// isolation backend.
//
// The generated document grants no inherited privileges: capability sets
// are empty, device access is denied, and the container root is mapped
// to a single unprivileged host identity. Memory and process-count
// ceilings are encoded so the isolation layer itself terminates the
// program on breach; the wall-clock budget is enforced by the invoker.
package ocispec
