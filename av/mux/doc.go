// Package mux packs encoded video and audio units into a Matroska container held in
// memory.
//
// Units may arrive in any order from concurrent producers; [MatroskaMuxer] buffers them
// and orders blocks by output timestamp when the container is finalized. Blocks are
// written with the SimpleBlock writer from github.com/at-wat/ebml-go/mkvcore.
//
//	m, _ := mux.NewMatroskaMuxer(mux.Config{Width: 1080, Height: 1920, FrameRate: 30,
//	    SampleRate: 48000, Channels: 2})
//	_ = m.WriteUnit(unit)
//	data, _ := m.Finalize(ctx)
package mux
