package types

// AudioEncoding names an audio byte layout using its MIME-style content
// type.
type AudioEncoding string

const (
	// EncodingULaw is 8-bit mu-law companded audio, the telephone line
	// format.
	EncodingULaw AudioEncoding = "audio/x-mulaw"
	// EncodingPCM16 is 16-bit little-endian linear PCM.
	EncodingPCM16 AudioEncoding = "audio/x-l16"
)

// LineSampleRate is the sample rate of the telephone line, in hertz.
const LineSampleRate = 8000

// AudioFrame is a chunk of audio with enough metadata to convert it.
type AudioFrame struct {
	Data       []byte
	Encoding   AudioEncoding
	SampleRate int
}

// NewULawFrame wraps mu-law bytes at the line sample rate.
func NewULawFrame(data []byte) AudioFrame {
	return AudioFrame{
		Data:       data,
		Encoding:   EncodingULaw,
		SampleRate: LineSampleRate,
	}
}

// NewPCMFrame wraps 16-bit little-endian PCM bytes at the given sample
// rate.
func NewPCMFrame(data []byte, sampleRate int) AudioFrame {
	return AudioFrame{
		Data:       data,
		Encoding:   EncodingPCM16,
		SampleRate: sampleRate,
	}
}

// Empty reports whether the frame carries no audio.
func (f AudioFrame) Empty() bool {
	return len(f.Data) == 0
}
