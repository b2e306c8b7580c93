/*
Package fragment defines the unit of sampling: a single signed fragment of a
slot, either a data fragment or an erasure coding fragment.

Fragments come in two variants. Merkle fragments carry an inclusion proof of
their leaf bytes against a root, and the producer signs that root. Legacy
fragments carry no proof and the producer signs the leaf bytes directly. Only
Merkle fragments ever pass Verify.
*/
package fragment
