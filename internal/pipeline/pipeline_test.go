package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/symguard/internal/config"
	"github.com/backmassage/symguard/internal/health"
	"github.com/backmassage/symguard/internal/logging"
	"github.com/backmassage/symguard/internal/probe"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func symlink(t *testing.T, target, link string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(link), 0o755))
	require.NoError(t, os.Symlink(target, link))
}

func paths(entries []health.Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Path)
	}
	sort.Strings(out)
	return out
}

// --- Collect tests ---

func TestCollect_FindsLinksIncludingBroken(t *testing.T) {
	store := t.TempDir()
	root := t.TempDir()
	writeFile(t, filepath.Join(store, "a.mkv"), 2048)
	writeFile(t, filepath.Join(root, "plain.txt"), 10)
	symlink(t, filepath.Join(store, "a.mkv"), filepath.Join(root, "Show", "a.mkv"))
	symlink(t, filepath.Join(store, "gone.mkv"), filepath.Join(root, "Show", "Season 1", "gone.mkv"))

	entries, err := Collect(context.Background(), []string{root}, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "Show", "Season 1", "gone.mkv"),
		filepath.Join(root, "Show", "a.mkv"),
	}, paths(entries))
	for _, e := range entries {
		assert.NotEmpty(t, e.Target)
	}
}

func TestCollect_DoesNotFollowDirectoryLinks(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	symlink(t, filepath.Join(other, "x"), filepath.Join(other, "inner.mkv"))
	symlink(t, other, filepath.Join(root, "linkdir"))
	// A cycle back to the root must not loop.
	symlink(t, root, filepath.Join(root, "loop"))

	entries, err := Collect(context.Background(), []string{root}, logging.NewNop())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCollect_SkipsUnreadableSubdir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := t.TempDir()
	symlink(t, "/nonexistent", filepath.Join(root, "ok", "a.mkv"))
	symlink(t, "/nonexistent", filepath.Join(root, "locked", "b.mkv"))
	require.NoError(t, os.Chmod(filepath.Join(root, "locked"), 0o000))
	t.Cleanup(func() { _ = os.Chmod(filepath.Join(root, "locked"), 0o755) })

	entries, err := Collect(context.Background(), []string{root}, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "ok", "a.mkv")}, paths(entries))
}

func TestCollect_MissingRootIsError(t *testing.T) {
	_, err := Collect(context.Background(), []string{filepath.Join(t.TempDir(), "nope")}, logging.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCollect_Cancelled(t *testing.T) {
	root := t.TempDir()
	symlink(t, "/x", filepath.Join(root, "a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Collect(ctx, []string{root}, logging.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCountLinks(t *testing.T) {
	base := t.TempDir()
	symlink(t, "/x", filepath.Join(base, "Movies", "a.mkv"))
	symlink(t, "/x", filepath.Join(base, "Movies", "sub", "b.mkv"))
	symlink(t, "/x", filepath.Join(base, "Series", "c.mkv"))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "Empty"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, ".hidden"), 0o755))
	writeFile(t, filepath.Join(base, "top.txt"), 1)

	counts, err := CountLinks(context.Background(), base, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []DirCount{
		{Name: "Empty", Path: filepath.Join(base, "Empty"), Links: 0},
		{Name: "Movies", Path: filepath.Join(base, "Movies"), Links: 2},
		{Name: "Series", Path: filepath.Join(base, "Series"), Links: 1},
	}, counts)
}

func TestCollect_SymlinkedRoot(t *testing.T) {
	store := t.TempDir()
	library := t.TempDir()
	writeFile(t, filepath.Join(store, "a.mkv"), 2048)
	symlink(t, filepath.Join(store, "a.mkv"), filepath.Join(library, "Show", "a.mkv"))
	symlink(t, filepath.Join(store, "gone.mkv"), filepath.Join(library, "Show", "gone.mkv"))
	// Links below the resolved root are still not followed.
	symlink(t, store, filepath.Join(library, "storelink"))

	root := filepath.Join(t.TempDir(), "Medias")
	symlink(t, library, root)

	entries, err := Collect(context.Background(), []string{root}, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "Show", "a.mkv"),
		filepath.Join(root, "Show", "gone.mkv"),
	}, paths(entries))
}

func TestCountLinks_SymlinkedSubdir(t *testing.T) {
	library := t.TempDir()
	symlink(t, "/x", filepath.Join(library, "a.mkv"))
	symlink(t, "/x", filepath.Join(library, "b.mkv"))

	base := t.TempDir()
	symlink(t, "/x", filepath.Join(base, "Series", "c.mkv"))
	symlink(t, library, filepath.Join(base, "Movies"))
	symlink(t, "/x", filepath.Join(base, "stray.mkv"))

	counts, err := CountLinks(context.Background(), base, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []DirCount{
		{Name: "Movies", Path: filepath.Join(base, "Movies"), Links: 2},
		{Name: "Series", Path: filepath.Join(base, "Series"), Links: 1},
	}, counts)
}

// --- Aggregate tests ---

func TestAggregate(t *testing.T) {
	p1 := []health.Result{{Path: "/a", Status: health.StatusBroken}, {Path: "/b", Status: health.StatusSmallFile}}
	p2 := []health.Result{{Path: "/c", Status: health.StatusCorrupted, Phase: health.PhaseDecode}}

	set, err := Aggregate(p1, p2)
	require.NoError(t, err)
	assert.Len(t, set, len(p1)+len(p2))
	for i, want := range []string{"/a", "/b", "/c"} {
		assert.Equal(t, want, set[i].Path)
	}

	empty, err := Aggregate(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAggregate_DuplicatePath(t *testing.T) {
	_, err := Aggregate([]health.Result{{Path: "/a"}}, []health.Result{{Path: "/a"}})
	assert.ErrorIs(t, err, ErrDuplicatePath)
}

// --- RunStats tests ---

func TestRunStats_ConcurrentRecord(t *testing.T) {
	s := NewRunStats()
	s.SetCollected(800)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				st := health.StatusOK
				if i%4 == 0 {
					st = health.StatusBroken
				}
				s.Record(health.Result{Status: st, Phase: health.PhaseBasic})
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, int64(800), snap.Checked)
	assert.Equal(t, int64(600), snap.ByStatus[health.StatusOK])
	assert.Equal(t, int64(200), snap.ByStatus[health.StatusBroken])
	assert.Equal(t, int64(200), snap.Problems)
}

func TestRunStats_Phase2ReplacesOK(t *testing.T) {
	s := NewRunStats()
	s.Record(health.Result{Status: health.StatusOK, Phase: health.PhaseBasic})
	s.Record(health.Result{Status: health.StatusOK, Phase: health.PhaseBasic})
	s.Record(health.Result{Status: health.StatusCorrupted, Phase: health.PhaseDecode})
	s.Record(health.Result{Status: health.StatusOK, Phase: health.PhaseDecode})
	s.AddDeleted(1, 4096)

	snap := s.Snapshot()
	assert.Equal(t, int64(2), snap.Checked)
	assert.Equal(t, int64(2), snap.Probed)
	assert.Equal(t, int64(1), snap.ByStatus[health.StatusOK])
	assert.Equal(t, int64(1), snap.ByStatus[health.StatusCorrupted])
	assert.Equal(t, int64(1), snap.Deleted)
	assert.Equal(t, int64(4096), snap.DeletedBytes)
}

func TestRunStats_Progress(t *testing.T) {
	s := NewRunStats()
	s.SetCollected(2500)
	var calls []int64
	s.OnProgress = func(done, total int64) {
		calls = append(calls, done)
		assert.Equal(t, int64(2500), total)
	}
	for i := 0; i < 2500; i++ {
		s.Record(health.Result{Status: health.StatusOK})
	}
	assert.Equal(t, []int64{1000, 2000}, calls)
}

// --- Runner tests ---

// mediaTree builds the three-link fixture: one dangling link, one to a
// 10-byte file, one to a 2 MiB media file.
func mediaTree(t *testing.T) (root string, links map[string]string) {
	t.Helper()
	store := t.TempDir()
	root = t.TempDir()
	writeFile(t, filepath.Join(store, "tiny.mkv"), 10)
	writeFile(t, filepath.Join(store, "Movie.Name.2020.mkv"), 2<<20)

	links = map[string]string{
		"dangling": filepath.Join(root, "movies", "Gone.Film.1999.mkv"),
		"small":    filepath.Join(root, "tv", "Show.Name.S01E02.mkv"),
		"good":     filepath.Join(root, "movies", "Movie.Name.2020.mkv"),
	}
	symlink(t, filepath.Join(store, "missing.mkv"), links["dangling"])
	symlink(t, filepath.Join(store, "tiny.mkv"), links["small"])
	symlink(t, filepath.Join(store, "Movie.Name.2020.mkv"), links["good"])
	return root, links
}

func scriptedProber(out string) *probe.Prober {
	return &probe.Prober{
		Bin:     "ffprobe",
		Timeout: time.Second,
		Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte(out), nil
		},
	}
}

func testConfig(root string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Roots = []string{root}
	cfg.Workers = 2
	cfg.Notify = config.NotifyNone
	return &cfg
}

func TestRun_EndToEnd_DryRun(t *testing.T) {
	root, links := mediaTree(t)
	cfg := testConfig(root)
	log := logging.NewNop()

	r := NewRunner(cfg, log, false)
	r.Validator = &probe.Validator{Prober: scriptedProber("video\naudio\n"), Log: log}

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Interrupted)
	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Problems, 2)
	got := map[string]health.Status{}
	for _, p := range res.Problems {
		got[p.Path] = p.Status
	}
	assert.Equal(t, map[string]health.Status{
		links["dangling"]: health.StatusBroken,
		links["small"]:    health.StatusSmallFile,
	}, got)

	assert.Equal(t, int64(3), res.Stats.Collected)
	assert.Equal(t, int64(3), res.Stats.Checked)
	assert.Equal(t, int64(1), res.Stats.Probed)
	assert.Equal(t, int64(1), res.Stats.ByStatus[health.StatusOK])
	assert.Empty(t, res.Deleted)

	for _, l := range links {
		_, err := os.Lstat(l)
		assert.NoError(t, err, "dry run must not delete %s", l)
	}
}

func TestRun_CorruptedMediaIsProblem(t *testing.T) {
	root, links := mediaTree(t)
	cfg := testConfig(root)
	log := logging.NewNop()

	r := NewRunner(cfg, log, false)
	r.Validator = &probe.Validator{Prober: scriptedProber("subtitle\n"), Log: log}

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Problems, 3)
	last := res.Problems[2]
	assert.Equal(t, links["good"], last.Path)
	assert.Equal(t, health.StatusCorrupted, last.Status)
	assert.Equal(t, health.PhaseDecode, last.Phase)
	assert.Equal(t, int64(0), res.Stats.ByStatus[health.StatusOK])
}

func TestRun_RealModeDeletesAndNotifies(t *testing.T) {
	root, links := mediaTree(t)
	cfg := testConfig(root)
	cfg.Mode = config.ModeReal
	cfg.Depth = config.DepthBasic
	cfg.Notify = config.NotifyIndividual
	cfg.CommandDelay = 0
	cfg.Retries = 0

	var mu sync.Mutex
	var commands []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/series":
			_, _ = w.Write([]byte(`[{"id":5,"title":"Show Name"}]`))
		case "/api/v3/movie":
			_, _ = w.Write([]byte(`[{"id":9,"title":"Gone Film"}]`))
		case "/api/v3/command":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			commands = append(commands, body)
			mu.Unlock()
			w.WriteHeader(http.StatusCreated)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	cfg.Services = map[string]config.Service{
		config.ServiceSonarr: {Name: config.ServiceSonarr, URL: srv.URL, APIKey: "sonarr-key-123", Enabled: true},
		config.ServiceRadarr: {Name: config.ServiceRadarr, URL: srv.URL, APIKey: "radarr-key-123", Enabled: true},
	}

	res, err := NewRunner(cfg, logging.NewNop(), false).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Phase2Skipped)
	require.Len(t, res.Deleted, 2)
	assert.Equal(t, int64(2), res.Stats.Deleted)
	for _, key := range []string{"dangling", "small"} {
		_, err := os.Lstat(links[key])
		assert.ErrorIs(t, err, os.ErrNotExist)
	}
	_, err = os.Lstat(links["good"])
	assert.NoError(t, err)

	require.NotNil(t, res.Notification)
	assert.Equal(t, 2, res.Notification.Sent)
	assert.ElementsMatch(t, []map[string]any{
		{"name": "RefreshSeries", "seriesId": float64(5)},
		{"name": "RefreshMovie", "movieId": float64(9)},
	}, commands)
}

func TestRun_InterruptedSkipsDeletion(t *testing.T) {
	root, links := mediaTree(t)
	cfg := testConfig(root)
	cfg.Mode = config.ModeReal
	log := logging.NewNop()

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(cfg, log, false)
	r.Validator = &probe.Validator{Log: log, Prober: &probe.Prober{
		Bin:     "ffprobe",
		Timeout: time.Second,
		Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}}

	res, err := r.Run(ctx)
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.Len(t, res.Problems, 2, "phase-1 problems are kept")
	assert.Empty(t, res.Deleted)
	for _, l := range links {
		_, err := os.Lstat(l)
		assert.NoError(t, err)
	}
}

func TestRun_MissingRoot(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "absent"))
	_, err := NewRunner(cfg, logging.NewNop(), true).Run(context.Background())
	assert.Error(t, err)
}

func TestNewRunner_Stages(t *testing.T) {
	cfg := testConfig(t.TempDir())

	r := NewRunner(cfg, logging.NewNop(), false)
	assert.Nil(t, r.Validator, "probe unavailable")
	assert.Nil(t, r.Notifier, "notify none")

	cfg.Notify = config.NotifyBulk
	r = NewRunner(cfg, logging.NewNop(), true)
	assert.NotNil(t, r.Validator)
	assert.NotNil(t, r.Notifier)

	cfg.NoMediaScan = true
	cfg.Depth = config.DepthBasic
	r = NewRunner(cfg, logging.NewNop(), true)
	assert.Nil(t, r.Validator)
	assert.Nil(t, r.Notifier)
}
