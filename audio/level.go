package audio

import (
	"encoding/binary"
	"math"
)

// SilenceDB is reported for empty or all-zero buffers.
const SilenceDB = -160.0

// PowerDB returns the average power of 16-bit little-endian PCM in dBFS.
func PowerDB(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return SilenceDB
	}
	var sum float64
	for i := range n {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
		sum += s * s
	}
	if sum == 0 {
		return SilenceDB
	}
	return max(10*math.Log10(sum/float64(n)), SilenceDB)
}

// Level maps dBFS onto [0,1]: -50 dB and below is 0, 0 dB is 1.
func Level(db float64) float64 {
	return max(0, min(1, (db+50)/50))
}
