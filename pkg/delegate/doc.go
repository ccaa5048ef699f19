/*
Package delegate is an in-process render delegate: it owns the node-identity map,
reconciles graph descriptions against it, and emits instruction batches for the
host runtime to apply to the native graph.

Node identity is a 64-bit xxhash digest. A node with a Key is identified by its
kind and key alone, so its props can change without losing identity; an unkeyed
node is identified by its kind, props and children. Rendering the same graph twice,
or rendering into a map hydrated from a previous run, creates no new nodes.
*/
package delegate
