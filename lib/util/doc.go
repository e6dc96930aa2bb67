// Package util provides small building blocks shared by the client packages.
//
// The package contains:
//   - functions: the FNV-1a string hash used for sharding keys and slice helpers
//   - hashring: an immutable consistent hash ring (xxhash based) used by the
//     consistent hash allocation strategy
//   - lockfreempsc: a lock-free Multi-Producer Single-Consumer (MPSC) queue used as
//     the unbounded outbound queue of every remoting connection
package util
