// Package stt adapts an external speech-to-text service behind a narrow
// synchronous contract. The bridge hands it telephony audio directly so no
// decode round-trip is needed when the engine accepts mu-law input.
package stt
