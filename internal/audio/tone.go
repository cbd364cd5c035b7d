// Package audio renders and plays the soft cue that marks a breathing phase
// change. Playback is best-effort: every backend can be missing, and callers
// treat errors as a reason to go quiet, not to stop.
package audio

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// DefaultSampleRate is used when rendering the cue for playback.
const DefaultSampleRate = 22050

// Tone describes the phase-transition cue: a sine at Frequency whose gain
// ramps linearly from 0 to volume*Peak over Attack, then back to 0 at
// Duration.
type Tone struct {
	Frequency float64
	Duration  time.Duration
	Attack    time.Duration
	Peak      float64
}

// Cue is the standard phase-transition tone.
var Cue = Tone{
	Frequency: 220,
	Duration:  400 * time.Millisecond,
	Attack:    100 * time.Millisecond,
	Peak:      0.1,
}

// Envelope returns the gain at offset t for the given volume.
func (tn Tone) Envelope(t time.Duration, volume float64) float64 {
	volume = clamp(volume, 0, 1)
	peak := volume * tn.Peak
	switch {
	case t <= 0 || t >= tn.Duration:
		return 0
	case t <= tn.Attack:
		return peak * float64(t) / float64(tn.Attack)
	default:
		release := tn.Duration - tn.Attack
		return peak * float64(tn.Duration-t) / float64(release)
	}
}

// Samples renders the tone as signed 16-bit mono PCM.
func (tn Tone) Samples(volume float64, sampleRate int) []int16 {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	n := int(tn.Duration.Seconds() * float64(sampleRate))
	out := make([]int16, n)
	for i := range out {
		t := time.Duration(float64(i) / float64(sampleRate) * float64(time.Second))
		gain := tn.Envelope(t, volume)
		v := gain * math.Sin(2*math.Pi*tn.Frequency*float64(i)/float64(sampleRate))
		out[i] = int16(clamp(v, -1, 1) * math.MaxInt16)
	}
	return out
}

// WriteWAV encodes the tone at volume as a 16-bit mono WAV file. The encoder
// seeks back to fill in chunk sizes, so w must be seekable.
func (tn Tone) WriteWAV(w io.WriteSeeker, volume float64) error {
	return writeWAV(w, tn.Samples(volume, DefaultSampleRate), DefaultSampleRate)
}

// WriteFile writes the tone at volume to a WAV file at path.
func (tn Tone) WriteFile(path string, volume float64, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if err := tn.WriteWAV(f, volume); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeWAV(w io.WriteSeeker, samples []int16, sampleRate int) error {
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(v)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1) // 1 = PCM
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finishing wav: %w", err)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
