package audio

import (
	"encoding/binary"

	"github.com/BaSui01/voicebridge/types"
)

// Downsample reduces pcm from srcRate to dstRate, which must divide it
// evenly. Each output sample is the mean of its source window; the
// averaging acts as a low-pass filter, unlike plain decimation which
// aliases anything above the target Nyquist frequency.
func Downsample(pcm []int16, srcRate, dstRate int) ([]int16, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, types.NewError(types.ErrInvalidAudio, "sample rates must be positive")
	}
	if srcRate%dstRate != 0 {
		return nil, types.NewError(types.ErrInvalidAudio, "source rate must be an integer multiple of target rate")
	}

	factor := srcRate / dstRate
	if factor == 1 || len(pcm) == 0 {
		out := make([]int16, len(pcm))
		copy(out, pcm)
		return out, nil
	}

	out := make([]int16, 0, (len(pcm)+factor-1)/factor)
	for i := 0; i < len(pcm); i += factor {
		end := i + factor
		if end > len(pcm) {
			end = len(pcm)
		}
		var sum int
		for _, s := range pcm[i:end] {
			sum += int(s)
		}
		out = append(out, int16(sum/(end-i)))
	}
	return out, nil
}

// PCMFromBytes reinterprets little-endian PCM16 bytes as samples.
// A trailing odd byte is ignored.
func PCMFromBytes(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}

// PCMToBytes serializes samples as little-endian PCM16 bytes.
func PCMToBytes(pcm []int16) []byte {
	out := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// EncodeForLine converts a linear PCM frame at any rate that divides
// evenly into 8 kHz samples down to the telephony line format.
func EncodeForLine(frame types.AudioFrame) (types.AudioFrame, error) {
	samples := PCMFromBytes(frame.Data)
	down, err := Downsample(samples, frame.SampleRate, types.LineSampleRate)
	if err != nil {
		return types.AudioFrame{}, err
	}
	return types.NewULawFrame(EncodeULaw(down)), nil
}

// DecodeFromLine expands a telephony line frame to linear PCM16 at 8 kHz.
func DecodeFromLine(frame types.AudioFrame) types.AudioFrame {
	return types.NewPCMFrame(PCMToBytes(DecodeULaw(frame.Data)), types.LineSampleRate)
}
