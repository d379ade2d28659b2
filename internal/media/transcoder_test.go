package media

import (
	"strings"
	"testing"
)

func TestTranscodeArgsWholeFile(t *testing.T) {
	args := transcodeArgs("/in/src.mp3", "/out/part.ogg", 0, 0)
	joined := strings.Join(args, " ")

	if strings.Contains(joined, "-ss") {
		t.Errorf("whole-file args should not seek: %s", joined)
	}
	if strings.Contains(joined, "-t ") {
		t.Errorf("whole-file args should not limit duration: %s", joined)
	}
	for _, want := range []string{"-vn", "-acodec libopus", "-ar 48000", "-ac 1", "-b:a 64k"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if args[len(args)-1] != "/out/part.ogg" {
		t.Errorf("output path must be the last argument: %v", args)
	}
}

func TestTranscodeArgsSlice(t *testing.T) {
	args := transcodeArgs("/in/src.mp4", "/out/part.ogg", 9000, 9000)
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-ss 9000.000") {
		t.Errorf("args missing seek offset: %s", joined)
	}
	if !strings.Contains(joined, "-t 9000.000") {
		t.Errorf("args missing duration limit: %s", joined)
	}

	// -ss は入力側シークのため -i より前に来る
	ssIdx, inIdx := -1, -1
	for i, a := range args {
		switch a {
		case "-ss":
			ssIdx = i
		case "-i":
			inIdx = i
		}
	}
	if ssIdx == -1 || inIdx == -1 || ssIdx > inIdx {
		t.Errorf("-ss must precede -i: %v", args)
	}
}
