package clipgen

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kikiluvv/reelsmith/internal/project"
)

func TestSplitSubtitleText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     []string
	}{
		{"short stays whole", "hello", 16, []string{"hello"}},
		{"empty", "   ", 4, nil},
		{"full-width comma", "ABC、DEF", 1, []string{"ABC、", "DEF"}},
		{"no punctuation even", "ABCDEFGH", 4, []string{"ABCD", "EFGH"}},
		{"no punctuation odd", "ABCDEFG", 4, []string{"ABC", "DEFG"}},
		{"nearest to middle wins", "a, bcdefgh. ij", 5, []string{"a, bcdefgh.", "ij"}},
		{"opening bracket starts line", "今日は「晴れ」です", 4, []string{"今日は", "「晴れ」です"}},
		{"punctuation at edge ignored", "ABCDEF。", 3, []string{"ABC", "DEF。"}},
		{"ascii sentence", "Hello there. How are you", 10, []string{"Hello there.", "How are you"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSubtitleText(tt.text, tt.maxChars)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSubtitleText(%q, %d) = %q, want %q", tt.text, tt.maxChars, got, tt.want)
			}
		})
	}
}

func TestSubtitleFilterLayers(t *testing.T) {
	style := project.DefaultTextStyle()
	style.Box = true
	style.BoxOpacity = 0.5

	filter := subtitleFilter([]string{"it's 100%", "two"}, style)

	if n := strings.Count(filter, "drawtext="); n != 4 {
		t.Fatalf("expected shadow+main per line (4 layers), got %d in %s", n, filter)
	}
	if !strings.Contains(filter, `text=it\\\'s 100\\\\%`) {
		t.Errorf("text not escaped: %s", filter)
	}
	if !strings.Contains(filter, "borderw=4") || !strings.Contains(filter, "bordercolor=0x000000") {
		t.Errorf("stroke missing: %s", filter)
	}
	if !strings.Contains(filter, "boxcolor=0x000000@0.50") {
		t.Errorf("box missing: %s", filter)
	}
	if !strings.Contains(filter, "h*0.85-text_h/2-38") || !strings.Contains(filter, "h*0.85-text_h/2+38") {
		t.Errorf("lines not centred around 85%% height: %s", filter)
	}
	if !strings.Contains(filter, `font=Noto Sans CJK JP\\:style=Bold`) {
		t.Errorf("font not escaped: %s", filter)
	}
}

func TestSubtitleFilterWithoutShadow(t *testing.T) {
	style := project.DefaultTextStyle()
	style.Shadow = false
	filter := subtitleFilter([]string{"one"}, style)
	if n := strings.Count(filter, "drawtext="); n != 1 {
		t.Fatalf("expected a single layer, got %d", n)
	}
}
