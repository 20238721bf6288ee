package audio

// mu-law companding constants (ITU-T G.711).
const (
	ulawBias = 0x84
	ulawClip = 32635
)

// ULawToLinear expands a single mu-law byte to a linear PCM16 sample.
func ULawToLinear(u byte) int16 {
	u = ^u
	sign := u & 0x80
	exp := (u >> 4) & 0x07
	mant := u & 0x0F
	value := (int(mant) << 3) + ulawBias
	value <<= uint(exp)
	value -= ulawBias
	if sign != 0 {
		return int16(-value)
	}
	return int16(value)
}

// LinearToULaw compands a linear PCM16 sample into a single mu-law byte.
// Magnitudes beyond the format's representable maximum are clamped.
func LinearToULaw(sample int16) byte {
	sign := byte(0)
	s := int(sample)
	if s < 0 {
		s = -s
		sign = 0x80
	}
	if s > ulawClip {
		s = ulawClip
	}
	s += ulawBias

	exp := byte(7)
	for mask := 0x4000; s&mask == 0 && exp > 0; mask >>= 1 {
		exp--
	}
	mant := byte((s >> (uint(exp) + 3)) & 0x0F)

	// Bits are transmitted inverted per G.711.
	return ^(sign | exp<<4 | mant)
}

// DecodeULaw expands mu-law bytes to linear PCM16 samples. Zero-length
// input yields zero-length output.
func DecodeULaw(in []byte) []int16 {
	out := make([]int16, len(in))
	for i, b := range in {
		out[i] = ULawToLinear(b)
	}
	return out
}

// EncodeULaw compands linear PCM16 samples to mu-law bytes.
func EncodeULaw(pcm []int16) []byte {
	out := make([]byte, len(pcm))
	for i, s := range pcm {
		out[i] = LinearToULaw(s)
	}
	return out
}
