// Package codecdetect inspects recorded MP4 and QuickTime files.
package codecdetect

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Track describes one track of a recording.
type Track struct {
	ID        uint32
	Handler   string // "vide" or "soun"
	Codec     string // sample entry type, e.g. "jpeg", "avc1", "sowt", "mp4a"
	Timescale uint32
	Width     int
	Height    int
	Samples   int
	// Duration is the summed sample duration in timescale units.
	Duration uint64
}

// Report is the result of inspecting a file.
type Report struct {
	MajorBrand string
	Fragmented bool
	Tracks     []Track
	Fragments  int
}

// Track returns the first track with the given handler type.
func (r Report) Track(handler string) (Track, bool) {
	for _, t := range r.Tracks {
		if t.Handler == handler {
			return t, true
		}
	}
	return Track{}, false
}

// InspectFile inspects the file at path.
func InspectFile(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return Inspect(f)
}

// InspectBytes inspects an in-memory file.
func InspectBytes(data []byte) (Report, error) {
	return Inspect(bytes.NewReader(data))
}

// Inspect decodes the file structure from reader.
func Inspect(reader io.ReadSeeker) (Report, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return Report{}, fmt.Errorf("decode mp4: %w", err)
	}

	// Reset reader position for subsequent reads
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return Report{}, fmt.Errorf("seek: %w", err)
	}

	return inspectFile(mp4File)
}

func inspectFile(mp4File *mp4.File) (Report, error) {
	report := Report{Fragmented: mp4File.IsFragmented()}
	if mp4File.Ftyp != nil {
		report.MajorBrand = mp4File.Ftyp.MajorBrand()
	}

	moov := mp4File.Moov
	if mp4File.Init != nil && mp4File.Init.Moov != nil {
		moov = mp4File.Init.Moov
		if report.MajorBrand == "" && mp4File.Init.Ftyp != nil {
			report.MajorBrand = mp4File.Init.Ftyp.MajorBrand()
		}
	}
	if moov == nil {
		return report, fmt.Errorf("no moov box found")
	}

	index := make(map[uint32]int)
	for _, trak := range moov.Traks {
		t := describeTrack(trak)
		index[t.ID] = len(report.Tracks)
		report.Tracks = append(report.Tracks, t)
	}

	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			report.Fragments++
			for _, traf := range frag.Moof.Trafs {
				i, ok := index[traf.Tfhd.TrackID]
				if !ok {
					continue
				}
				for _, trun := range traf.Truns {
					report.Tracks[i].Samples += int(trun.SampleCount())
					for _, s := range trun.Samples {
						report.Tracks[i].Duration += uint64(s.Dur)
					}
				}
			}
		}
	}

	return report, nil
}

func describeTrack(trak *mp4.TrakBox) Track {
	var t Track
	if trak.Tkhd != nil {
		t.ID = trak.Tkhd.TrackID
		t.Width = int(trak.Tkhd.Width >> 16)
		t.Height = int(trak.Tkhd.Height >> 16)
	}
	if trak.Mdia == nil {
		return t
	}
	if trak.Mdia.Hdlr != nil {
		t.Handler = trak.Mdia.Hdlr.HandlerType
	}
	if trak.Mdia.Mdhd != nil {
		t.Timescale = trak.Mdia.Mdhd.Timescale
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return t
	}
	if children := trak.Mdia.Minf.Stbl.Stsd.Children; len(children) > 0 {
		t.Codec = children[0].Type()
	}
	return t
}
