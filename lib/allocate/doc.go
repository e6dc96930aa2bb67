// Package allocate implements the strategies that partition the queues of a topic
// across the members of a consumer group.
//
// Every member runs the same strategy with the same inputs (sorted queue and member
// lists) and keeps only its own share, so the shares of all members are disjoint and
// together cover the queues (except for MachineRoom, which skips queues of foreign
// machine rooms, and Config, which ignores its inputs).
package allocate
