package media

import (
	"errors"
	"testing"
)

func TestParseProbeOutputAudioOnly(t *testing.T) {
	output := []byte(`{
		"format": {"duration": "632.420000"},
		"streams": [{"codec_type": "audio"}]
	}`)

	duration, hasVideo, err := parseProbeOutput(output)
	if err != nil {
		t.Fatalf("parseProbeOutput returned error: %v", err)
	}
	if duration != 632.42 {
		t.Errorf("duration = %f, want 632.42", duration)
	}
	if hasVideo {
		t.Error("hasVideo = true, want false")
	}
}

func TestParseProbeOutputWithVideoTrack(t *testing.T) {
	output := []byte(`{
		"format": {"duration": "10.0"},
		"streams": [{"codec_type": "audio"}, {"codec_type": "video"}]
	}`)

	_, hasVideo, err := parseProbeOutput(output)
	if err != nil {
		t.Fatalf("parseProbeOutput returned error: %v", err)
	}
	if !hasVideo {
		t.Error("hasVideo = false, want true")
	}
}

func TestParseProbeOutputInvalid(t *testing.T) {
	cases := []struct {
		name   string
		output string
	}{
		{"not json", "garbage"},
		{"missing duration", `{"format": {}, "streams": []}`},
		{"zero duration", `{"format": {"duration": "0"}, "streams": []}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := parseProbeOutput([]byte(tc.output))
			if !errors.Is(err, ErrUnreadable) {
				t.Fatalf("err = %v, want ErrUnreadable", err)
			}
		})
	}
}

func TestIsSupported(t *testing.T) {
	cases := []struct {
		path  string
		video bool
		ok    bool
	}{
		{"meeting.mp4", true, true},
		{"talk.OGG", false, true},
		{"memo.m4a", false, true},
		{"clip.webm", true, true},
		{"notes.txt", false, false},
		{"archive.zip", false, false},
	}

	for _, tc := range cases {
		if got := IsSupported(tc.path); got != tc.ok {
			t.Errorf("IsSupported(%q) = %v, want %v", tc.path, got, tc.ok)
		}
		if got := IsVideo(tc.path); got != tc.video {
			t.Errorf("IsVideo(%q) = %v, want %v", tc.path, got, tc.video)
		}
	}
}
