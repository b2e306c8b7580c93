/*
Package das runs data availability sampling over the slots of the ledger.

Sampling is a pipeline of four stages connected by unbounded queues, each
running in its own goroutine:

  - the monitor subscribes to slot notifications and queues every new root
    slot;
  - the sampler probes fragment 0 of a slot to learn how many fragments the
    slot holds, draws a random sample of indices, fetches them in one batch
    and reconciles the response;
  - the verifier checks every fetched fragment against the slot producer's
    signature and its Merkle inclusion proof using a bounded worker pool;
  - the archiver stores each verified fragment in the content-addressed
    archive.

Failures are contained to the smallest unit that can be discarded: a fragment
that fails verification is dropped, a slot that can't be fetched or decoded is
abandoned. Only losing the slot subscription stops the monitor, which marks
the shared health state as Crashed and leaves the rest of the pipeline idle.

The DASer owns the pipeline and exposes a one-shot PullAndVerify for
sampling a single slot on demand.
*/
package das
