// Package pcm converts between normalized float32 samples and 16-bit PCM.
package pcm

// Encode converts normalized float32 samples into signed 16-bit PCM.
// Each sample is clamped to [-1, 1], scaled by 32767 and truncated.
// Out-of-range inputs are clamped, never rejected.
func Encode(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int16(s * 32767)
	}
	return out
}

// Bytes serializes a PCM16 frame into its little-endian wire form.
func Bytes(frame []int16) []byte {
	out := make([]byte, len(frame)*2)
	for i, v := range frame {
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

// Decode16 parses little-endian 16-bit PCM bytes into samples.
// A trailing odd byte is ignored.
func Decode16(data []byte) []int16 {
	n := len(data) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(data[2*i]) | int16(data[2*i+1])<<8
	}
	return out
}
