package enrich

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	t.Parallel()

	candidates := []string{"AI", "Tool", "3d", "image generation"}
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{name: "comma list", output: "ai, tool", want: []string{"AI", "Tool"}},
		{name: "out of vocabulary dropped", output: "ai, blockchain, crypto", want: []string{"AI"}},
		{name: "bulleted lines", output: "- Tool\n* image generation\n• 3d", want: []string{"Tool", "image generation", "3d"}},
		{name: "numbered and quoted", output: "1. \"ai\"\n2) 'tool'", want: []string{"AI", "Tool"}},
		{name: "prefix label", output: "Selected tags: tool; ai.", want: []string{"Tool", "AI"}},
		{name: "duplicates collapse", output: "ai, AI, Ai", want: []string{"AI"}},
		{name: "nothing usable", output: "I cannot decide", want: []string{}},
		{name: "fullwidth comma", output: "ai，tool", want: []string{"AI", "Tool"}},
		{name: "space separated", output: "Tool AI", want: []string{"Tool", "AI"}},
		{name: "prose", output: "Selected tags: AI and image generation", want: []string{"AI", "image generation"}},
		{name: "markdown bold", output: "**3D**\n**Tool**", want: []string{"3d", "Tool"}},
		{name: "inside other words ignored", output: "maintool, 3dfx, said", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ParseTags(tt.output, candidates))
		})
	}
}

func TestParseTagsCandidateWithSeparators(t *testing.T) {
	t.Parallel()

	candidates := []string{"AI", "Chatbot", "Q&A, Support"}
	require.Equal(t, []string{"Q&A, Support"}, ParseTags("Q&A, Support", candidates))
	require.Equal(t, []string{"Chatbot", "Q&A, Support"}, ParseTags("- chatbot\n- q&a, support", candidates))
}

func TestParseTagsHanCandidates(t *testing.T) {
	t.Parallel()

	candidates := []string{"人工智能", "聊天"}
	require.Equal(t, []string{"聊天", "人工智能"}, ParseTags("聊天人工智能", candidates))
}

func TestParseTagsNoCandidates(t *testing.T) {
	t.Parallel()

	got := ParseTags("ai, tool", nil)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func FuzzParseTagsContainment(f *testing.F) {
	f.Add("ai, tool, other")
	f.Add("- ai\n- nope")
	f.Add("")
	candidates := []string{"ai", "tool"}
	f.Fuzz(func(t *testing.T, output string) {
		for _, tag := range ParseTags(output, candidates) {
			require.Contains(t, candidates, tag)
		}
	})
}
