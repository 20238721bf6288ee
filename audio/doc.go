// Package audio implements the codec bridge between the telephony line
// format (8-bit mu-law companded samples at 8 kHz) and linear 16-bit PCM,
// including the downsampling needed on the synthesis path.
//
// All functions are pure and stateless; independent frames may be
// processed concurrently.
package audio
