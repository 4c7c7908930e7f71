package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/user/avgrabber/pkg/adapters/codecdetect"
)

func sampleReport() codecdetect.Report {
	return codecdetect.Report{
		MajorBrand: "qt  ",
		Fragmented: true,
		Fragments:  3,
		Tracks: []codecdetect.Track{
			{ID: 1, Handler: "vide", Codec: "jpeg", Timescale: 90000, Width: 320, Height: 240, Samples: 3, Duration: 9000},
			{ID: 2, Handler: "soun", Codec: "sowt", Timescale: 48000, Samples: 4, Duration: 3840},
		},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	writeText(&buf, "take.mov", sampleReport())
	out := buf.String()

	checks := []string{
		"take.mov",
		"brand:      qt\n",
		"fragmented: true (3 fragments)",
		"track 1: vide jpeg, timescale 90000, 3 samples, 320x240, 0.100 s",
		"track 2: soun sowt, timescale 48000, 4 samples, 0.080 s",
	}
	for _, check := range checks {
		if !strings.Contains(out, check) {
			t.Errorf("expected output to contain %q, got:\n%s", check, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, "take.mov", sampleReport()); err != nil {
		t.Fatalf("writeJSON failed: %v", err)
	}

	var decoded struct {
		File   string
		Tracks []codecdetect.Track
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.File != "take.mov" || len(decoded.Tracks) != 2 {
		t.Errorf("unexpected report: %+v", decoded)
	}
}
