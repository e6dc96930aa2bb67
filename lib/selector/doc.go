// Package selector provides the producer side queue selectors: manual, random,
// round robin per topic and hash of the sharding key. All selectors are safe
// for concurrent use.
package selector
