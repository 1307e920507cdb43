package report_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenbot/warden/internal/report"
)

const testTreeDocument = `{
	"prompt": "Why are you reporting this message?",
	"options": {
		"Harassment": {
			"prompt": "Who is being targeted?",
			"options": {
				"Me": {"final_note": "Thank you for your report."},
				"Someone else": {"final_note": "Thank you for looking out for others."}
			}
		},
		"Blackmail": {
			"warning": "Do not comply with any demands.",
			"final_note": "Our moderators will prioritize this report."
		},
		"Spam": {"final_note": "Thank you for your report."}
	}
}`

func TestParseTree(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		root, err := report.ParseTree([]byte(testTreeDocument))
		require.NoError(t, err)

		assert.Equal(t, "Why are you reporting this message?", root.Prompt)
		assert.False(t, root.IsLeaf())
		require.Len(t, root.Options, 3)
	})

	t.Run("option order follows document order", func(t *testing.T) {
		root, err := report.ParseTree([]byte(testTreeDocument))
		require.NoError(t, err)

		labels := make([]string, 0, len(root.Options))
		for _, option := range root.Options {
			labels = append(labels, option.Label)
		}

		assert.Equal(t, []string{"Harassment", "Blackmail", "Spam"}, labels)

		harassment := root.Options[0].Node
		require.Len(t, harassment.Options, 2)
		assert.Equal(t, "Me", harassment.Options[0].Label)
		assert.Equal(t, "Someone else", harassment.Options[1].Label)
	})

	t.Run("leaf detection", func(t *testing.T) {
		root, err := report.ParseTree([]byte(testTreeDocument))
		require.NoError(t, err)

		blackmail := root.Options[1].Node
		assert.True(t, blackmail.IsLeaf())
		assert.Equal(t, "Do not comply with any demands.", blackmail.Warning)
		assert.Equal(t, "Our moderators will prioritize this report.", blackmail.FinalNote)
	})

	t.Run("unknown keys are skipped", func(t *testing.T) {
		root, err := report.ParseTree([]byte(`{"prompt": "p", "extra": {"nested": [1, 2]}, "final_note": "n"}`))
		require.NoError(t, err)
		assert.Equal(t, "p", root.Prompt)
		assert.Equal(t, "n", root.FinalNote)
	})

	t.Run("malformed documents", func(t *testing.T) {
		cases := map[string]string{
			"not an object":      `[1, 2, 3]`,
			"truncated":          `{"prompt": "p"`,
			"non-string prompt":  `{"prompt": 5}`,
			"non-object options": `{"options": ["a", "b"]}`,
			"non-object child":   `{"options": {"A": "leaf"}}`,
			"trailing content":   `{"prompt": "p"} {}`,
		}

		for name, doc := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := report.ParseTree([]byte(doc))
				require.ErrorIs(t, err, report.ErrMalformedTree)
			})
		}
	})
}

func TestLoadTree(t *testing.T) {
	t.Run("reads from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tree.json")
		require.NoError(t, os.WriteFile(path, []byte(testTreeDocument), 0o644))

		root, err := report.LoadTree(path)
		require.NoError(t, err)
		assert.Len(t, root.Options, 3)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := report.LoadTree(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
	})
}

func TestRenderNode(t *testing.T) {
	root, err := report.ParseTree([]byte(testTreeDocument))
	require.NoError(t, err)

	t.Run("numbered options with trailing skip slot", func(t *testing.T) {
		rendered := report.RenderNode(root)

		assert.Equal(t, "Why are you reporting this message?\n"+
			"1. Harassment\n"+
			"2. Blackmail\n"+
			"3. Spam\n"+
			"4. Skip the remaining questions", rendered)
	})

	t.Run("warning precedes prompt", func(t *testing.T) {
		node, err := report.ParseTree([]byte(`{
			"warning": "Careful.",
			"prompt": "Pick one:",
			"options": {"A": {}}
		}`))
		require.NoError(t, err)

		assert.Equal(t, "Careful.\n\nPick one:\n1. A\n2. Skip the remaining questions",
			report.RenderNode(node))
	})

	t.Run("re-rendering is byte-identical", func(t *testing.T) {
		assert.Equal(t, report.RenderNode(root), report.RenderNode(root))
	})
}
