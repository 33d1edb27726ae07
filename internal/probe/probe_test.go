package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/symguard/internal/health"
	"github.com/backmassage/symguard/internal/logging"
)

func TestParseCodecTypes(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want []string
	}{
		{"video and audio", "video\naudio\naudio\n", []string{"video", "audio", "audio"}},
		{"trailing commas", "video,\naudio,\n", []string{"video", "audio"}},
		{"blank lines", "\n\nsubtitle\n\n", []string{"subtitle"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCodecTypes([]byte(tt.out)))
		})
	}
}

func TestHasMediaStream(t *testing.T) {
	assert.True(t, HasMediaStream([]string{"subtitle", "audio"}))
	assert.True(t, HasMediaStream([]string{"video"}))
	assert.False(t, HasMediaStream([]string{"subtitle", "data"}))
	assert.False(t, HasMediaStream(nil))
}

func TestIsMediaFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/m/Show.S01E01.mkv", true},
		{"/m/Movie.2010.MP4", true},
		{"/m/song.flac", true},
		{"/m/clip.webm", true},
		{"/m/Movie.2010.nfo", false},
		{"/m/cover.jpg", false},
		{"/m/noext", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsMediaFile(tt.path), tt.path)
	}
}

func TestEstimateDuration(t *testing.T) {
	assert.Equal(t, time.Minute, EstimateDuration(30))
	assert.Equal(t, 10*time.Second, EstimateDuration(5))
	assert.Zero(t, EstimateDuration(0))
}

// scripted maps a path to canned ffprobe stdout or an error.
type scripted struct {
	out   map[string]string
	errs  map[string]error
	calls []string
	args  []string
	hook  func(path string)
}

func (s *scripted) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	path := args[len(args)-1]
	s.calls = append(s.calls, path)
	s.args = args
	if s.hook != nil {
		s.hook(path)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := s.errs[path]; err != nil {
		return nil, err
	}
	return []byte(s.out[path]), nil
}

func newProber(s *scripted) *Prober {
	return &Prober{Bin: "ffprobe", Timeout: time.Second, Run: s.run}
}

func TestCheck(t *testing.T) {
	s := &scripted{
		out: map[string]string{
			"/ok.mkv":    "video\naudio\n",
			"/subs.mkv":  "subtitle\n",
			"/empty.mkv": "",
		},
		errs: map[string]error{"/bad.mkv": errors.New("exit status 1")},
	}
	p := newProber(s)

	require.NoError(t, p.Check(context.Background(), "/ok.mkv"))
	assert.ErrorIs(t, p.Check(context.Background(), "/subs.mkv"), ErrNoStreams)
	assert.ErrorIs(t, p.Check(context.Background(), "/empty.mkv"), ErrNoStreams)
	assert.ErrorContains(t, p.Check(context.Background(), "/bad.mkv"), "exit status 1")
	assert.Equal(t, []string{"-v", "error", "-show_entries", "stream=codec_type", "-of", "csv=p=0", "/bad.mkv"}, s.args)
}

func TestCheck_Timeout(t *testing.T) {
	p := &Prober{Bin: "ffprobe", Timeout: 10 * time.Millisecond, Run: func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	err := p.Check(context.Background(), "/slow.mkv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

type sink struct{ results []health.Result }

func (s *sink) Record(r health.Result) { s.results = append(s.results, r) }

func okResult(path string) health.Result {
	return health.Result{Path: path, Target: "/data" + path, Status: health.StatusOK, Phase: health.PhaseBasic, Size: 4096}
}

func TestValidatorRun(t *testing.T) {
	s := &scripted{
		out:  map[string]string{"/a.mkv": "video\naudio\n", "/c.mp3": "audio\n"},
		errs: map[string]error{"/b.mp4": errors.New("moov atom not found")},
	}
	v := &Validator{Prober: newProber(s), Log: logging.NewNop()}
	rec := &sink{}

	out := v.Run(context.Background(), []health.Result{
		okResult("/a.mkv"), okResult("/b.mp4"), okResult("/notes.txt"), okResult("/c.mp3"),
	}, rec)

	assert.Equal(t, 3, out.Media)
	assert.Equal(t, 3, out.Analyzed)
	assert.False(t, out.Interrupted)
	require.Len(t, out.Problems, 1)
	bad := out.Problems[0]
	assert.Equal(t, "/b.mp4", bad.Path)
	assert.Equal(t, health.StatusCorrupted, bad.Status)
	assert.Equal(t, health.PhaseDecode, bad.Phase)
	assert.Equal(t, int64(4096), bad.Size)
	assert.Equal(t, "/data/b.mp4", bad.Target)
	assert.NotContains(t, s.calls, "/notes.txt")
	assert.Len(t, rec.results, 3)
}

func TestValidatorRun_InterruptDiscardsInFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &scripted{out: map[string]string{"/1.mkv": "video\n", "/2.mkv": "video\n", "/3.mkv": "video\n"}}
	s.hook = func(path string) {
		if path == "/2.mkv" {
			cancel()
		}
	}
	v := &Validator{Prober: newProber(s), Log: logging.NewNop()}

	out := v.Run(ctx, []health.Result{okResult("/1.mkv"), okResult("/2.mkv"), okResult("/3.mkv")}, nil)

	assert.True(t, out.Interrupted)
	assert.Equal(t, 1, out.Analyzed)
	assert.Empty(t, out.Problems, "killed probe must not count as corrupted")
	assert.Equal(t, []string{"/1.mkv", "/2.mkv"}, s.calls)
}

func TestVersion(t *testing.T) {
	p := &Prober{Bin: "ffprobe", Run: func(context.Context, string, ...string) ([]byte, error) {
		return []byte("ffprobe version 6.1.1 Copyright (c) 2007-2023\nbuilt with gcc\n"), nil
	}}
	v, err := p.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ffprobe version 6.1.1 Copyright (c) 2007-2023", v)

	missing := NewProber("/nonexistent/ffprobe", 0)
	_, err = missing.Version(context.Background())
	assert.Error(t, err)
}
