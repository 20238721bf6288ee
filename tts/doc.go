// Package tts adapts an external speech-synthesis service. The adapter
// returns linear PCM at the engine's stated sample rate; the codec bridge
// owns the conversion back to the line format.
package tts
