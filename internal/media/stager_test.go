package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"shot.png", KindImage},
		{"photo.JPG", KindImage},
		{"clip.mp4", KindVideo},
		{"voice.ogg", KindAudio},
		{"notes.pdf", KindDocument},
		{"data.bin", KindDocument},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectKind(tt.path), "path: %s", tt.path)
	}
}

func TestProcessAndStage_CopiesIntoMediaDir(t *testing.T) {
	srcDir := t.TempDir()
	worktree := t.TempDir()
	src := filepath.Join(srcDir, "mockup.png")
	require.NoError(t, os.WriteFile(src, []byte("png bytes"), 0o644))

	staged, err := New(nil).ProcessAndStage(src, worktree)
	require.NoError(t, err)

	assert.Equal(t, KindImage, staged.Kind)
	assert.Equal(t, filepath.Join(".media", "mockup.png"), staged.WorktreeRelPath)

	data, err := os.ReadFile(filepath.Join(worktree, ".media", "mockup.png"))
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))
}

func TestProcessAndStage_MissingSourceFails(t *testing.T) {
	_, err := New(nil).ProcessAndStage(filepath.Join(t.TempDir(), "nope.png"), t.TempDir())
	assert.Error(t, err)
}

func TestProcessAndStageAll_SkipsFailedFiles(t *testing.T) {
	srcDir := t.TempDir()
	worktree := t.TempDir()
	good := filepath.Join(srcDir, "doc.pdf")
	require.NoError(t, os.WriteFile(good, []byte("pdf"), 0o644))

	staged := New(nil).ProcessAndStageAll([]string{good, filepath.Join(srcDir, "missing.png")}, worktree)
	require.Len(t, staged, 1)
	assert.Equal(t, KindDocument, staged[0].Kind)
}

func TestBuildMediaReference(t *testing.T) {
	assert.Empty(t, BuildMediaReference(nil, KindImage))
	got := BuildMediaReference([]string{".media/a.png", ".media/b.png"}, KindImage)
	assert.Contains(t, got, ".media/a.png, .media/b.png")
}
