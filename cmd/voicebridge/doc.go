/*
Package main provides the voicebridge server entry point.

cmd/voicebridge is the executable that answers a telephony platform's
call-setup webhook and bridges each call's media stream through the
transcribe, reply, synthesize pipeline. It loads YAML configuration with
environment overrides, logs structurally via zap, and exposes Prometheus
metrics on a separate port.

Subcommands:

  - serve   — start the bridge (optionally with --config config.yaml)
  - version — print build information
  - health  — probe a running bridge's health endpoint
  - help    — usage

Shutdown is graceful: on SIGINT or SIGTERM the listeners stop accepting,
every live call session is closed, and both servers drain within the
configured timeout.
*/
package main
