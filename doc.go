/*
Package accumulate builds, encodes and signs transactions for the
Accumulate network.

Values are encoded with a schema-driven canonical binary encoder: every
encodable type is described once by a static field table in the default
registry, so encoding never inspects struct tags or walks fields at
runtime. Signatures follow the Accumulate metadata-hash protocol and may be
produced locally with an Ed25519 key, by an external signer, or in two
phases through the Coordinator, which hands out the digest to sign and later
accepts the raw signature for submission.
*/

package accumulate
