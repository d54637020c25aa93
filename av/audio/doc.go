// Package audio implements the audio half of the reframe pipeline: the gain and tempo
// stages, the retimer that re-stamps source buffers onto the output clock, and the PCM
// encoder that feeds the muxer.
//
// # Architecture Overview
//
// Each source buffer flows through:
//
//	AudioBuffer → Retimer (segment clip → Gain → Tempo → re-stamp) → PCMEncoder → EncodedUnit
//
// # Retimer
//
// The retimer is told which segment is active and drops buffers that fall outside it:
//
//	r, _ := audio.NewRetimer(audio.RetimerConfig{Volume: 0.8, Speed: 1.05})
//	r.BeginSegment(seg, clock)
//	out, verdict, err := r.Process(buf)
//	switch verdict {
//	case audio.VerdictEmit:
//	    // out.Timestamp is on the output clock
//	case audio.VerdictSkip:
//	    // buffer ended before the segment started
//	case audio.VerdictSegmentDone:
//	    // stop reading; the segment is closed
//	}
//
// # Tempo
//
// Tempo is applied by linear resampling: a buffer of n frames becomes n/speed frames at
// the same sample rate, so emitted audio length matches the emitted video length. Pitch
// shifts with the tempo.
//
// # Thread Safety
//
// A Retimer is owned by a single audio loop. PCMEncoder serializes Encode calls
// internally so it may be shared with a flush path.
package audio
