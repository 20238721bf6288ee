// Package bridge implements the real-time audio session pipeline: the
// JSON stream protocol spoken over the telephony platform's WebSocket,
// the per-call session with its turn-taking state machine, and the
// process-wide session registry.
//
// One WebSocket connection carries one call. Inbound media frames feed a
// single-consumer queue per session; the session serializes
// decode -> transcribe -> reply -> synthesize -> encode for one utterance
// at a time and answers with a clear event followed by the reply audio,
// so fresh agent speech always preempts anything still queued for
// playback on the far end.
package bridge
