package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "short content", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)
			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}

	if IDFromContent("content1") == IDFromContent("content2") {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestStageTransitions(t *testing.T) {
	happyPath := []Stage{
		StagePending, StageDownloading, StageParsing, StageChunking,
		StageEmbedding, StageStoring, StageCompleted,
	}
	for i := 0; i < len(happyPath)-1; i++ {
		if !happyPath[i].CanTransition(happyPath[i+1]) {
			t.Errorf("%s -> %s should be legal", happyPath[i], happyPath[i+1])
		}
	}

	for _, s := range happyPath[:len(happyPath)-1] {
		if !s.CanTransition(StageError) {
			t.Errorf("%s -> error should be legal", s)
		}
	}

	illegal := [][2]Stage{
		{StagePending, StageParsing},
		{StageParsing, StageDownloading},
		{StageCompleted, StageError},
		{StageError, StagePending},
		{StageError, StageError},
		{StageStoring, StageEmbedding},
	}
	for _, pair := range illegal {
		if pair[0].CanTransition(pair[1]) {
			t.Errorf("%s -> %s should be illegal", pair[0], pair[1])
		}
		if err := ValidateTransition(pair[0], pair[1]); err == nil {
			t.Errorf("ValidateTransition(%s, %s) returned nil", pair[0], pair[1])
		}
	}
}

func TestStageProgress(t *testing.T) {
	want := map[Stage]int{
		StageDownloading: 0,
		StageParsing:     20,
		StageChunking:    40,
		StageEmbedding:   60,
		StageStoring:     80,
		StageCompleted:   100,
		StageError:       -1,
	}
	for stage, progress := range want {
		if got := stage.Progress(); got != progress {
			t.Errorf("%s.Progress() = %d, want %d", stage, got, progress)
		}
	}
}

func TestStageNames(t *testing.T) {
	for _, s := range []Stage{StagePending, StageDownloading, StageParsing, StageChunking,
		StageEmbedding, StageStoring, StageCompleted, StageError} {
		parsed, ok := ParseStage(s.String())
		if !ok || parsed != s {
			t.Errorf("ParseStage(%q) = %v, %v", s.String(), parsed, ok)
		}
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Stage(0).Valid() || Stage(42).String() != "unknown" {
		t.Errorf("undeclared stages must be invalid")
	}
	if !StageError.Terminal() || !StageCompleted.Terminal() || StageStoring.Terminal() {
		t.Errorf("Terminal() disagrees with the transition table")
	}
}

func TestParsedContentHasImages(t *testing.T) {
	var nilContent *ParsedContent
	if nilContent.HasImages() {
		t.Errorf("nil content should have no images")
	}
	if (&ParsedContent{}).HasImages() {
		t.Errorf("empty content should have no images")
	}
	if !(&ParsedContent{Images: []PageImage{{URL: "u", Page: 1}}}).HasImages() {
		t.Errorf("content with images should report them")
	}
}
