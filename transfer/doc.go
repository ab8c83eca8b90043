// Package transfer moves a byte buffer across a Channel with stop-and-wait
// ARQ.
//
// The sender splits the buffer into chunks of frame.MaxPayload bytes and
// sends them one at a time, waiting for each to be acknowledged. Silence, a
// corrupt reply or a Nack makes it send the same chunk again. The receiver
// appends chunks strictly in order, acknowledges every in-order or
// duplicate chunk and answers anything else with a Nack for the chunk it
// still needs.
//
// By default both sides retry forever, as the protocol prescribes. A
// RetryPolicy or a context bounds the wait.
package transfer
