package shellcmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_StringQuotesMetacharacters(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want []string
	}{
		{
			name: "plain path",
			cmd:  Move("/volume1/photo/a.jpg", "/volume1/photo/#recycle/b/a.jpg"),
			want: []string{"mv", "-n", "/volume1/photo/a.jpg", "/volume1/photo/#recycle/b/a.jpg"},
		},
		{
			name: "spaces and quotes",
			cmd:  Cat(`/volume1/photo/Mum's "best" pic.jpg`),
			want: []string{"cat", `/volume1/photo/Mum's "best" pic.jpg`},
		},
		{
			name: "command substitution stays literal",
			cmd:  MkdirAll("/volume1/$(rm -rf /)/x; echo pwned"),
			want: []string{"mkdir", "-p", "/volume1/$(rm -rf /)/x; echo pwned"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words, err := Split(tt.cmd.String())
			require.NoError(t, err)
			assert.Equal(t, tt.want, words)
		})
	}
}

func TestFindFiles(t *testing.T) {
	t.Run("without prunes", func(t *testing.T) {
		cmd := FindFiles("/volume1/backup/")
		assert.Equal(t, "find", cmd.Name())
		assert.Equal(t, []string{"/volume1/backup", "-type", "f", "-print"}, cmd.Args())
	})

	t.Run("each prune becomes its own clause", func(t *testing.T) {
		cmd := FindFiles("/volume1/photo", "*/@*", "", "/volume1/photo/backup")
		assert.Equal(t, []string{
			"/volume1/photo",
			"-path", "*/@*", "-prune", "-o",
			"-path", "/volume1/photo/backup", "-prune", "-o",
			"-type", "f", "-print",
		}, cmd.Args())
	})

	t.Run("glob is not left for the remote shell to expand", func(t *testing.T) {
		words, err := Split(FindFiles("/v", "*/@*").String())
		require.NoError(t, err)
		assert.Contains(t, words, "*/@*")
	})
}

func TestGlobEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/volume1/photo/backup", "/volume1/photo/backup"},
		{"/volume1/photo/[old]", `/volume1/photo/\[old\]`},
		{"/volume1/photo/what?*", `/volume1/photo/what\?\*`},
		{`/volume1/a\b`, `/volume1/a\\b`},
		{"/volume1/#recycle", "/volume1/#recycle"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, GlobEscape(tt.in))
		})
	}
}

func TestCommand_WithDoesNotAlias(t *testing.T) {
	base := New("test", "-d")
	a := base.With("/a")
	b := base.With("/b")

	assert.Equal(t, []string{"-d", "/a"}, a.Args())
	assert.Equal(t, []string{"-d", "/b"}, b.Args())
	assert.Equal(t, []string{"-d"}, base.Args())
}

func TestStatModSize(t *testing.T) {
	words, err := Split(StatModSize("/volume1/photo/x y.jpg").String())
	require.NoError(t, err)
	assert.Equal(t, []string{"stat", "-c", "%Y %s", "/volume1/photo/x y.jpg"}, words)
}

func TestFFmpegThumbnail(t *testing.T) {
	words, err := Split(FFmpegThumbnail("/volume1/photo/a.heic", 256).String())
	require.NoError(t, err)
	require.Equal(t, "ffmpeg", words[0])
	assert.Contains(t, words, "/volume1/photo/a.heic")
	assert.Contains(t, words, "scale='min(256,iw)':'min(256,ih)':force_original_aspect_ratio=decrease")
	assert.Equal(t, "pipe:1", words[len(words)-1])
}
