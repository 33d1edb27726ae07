package notify

import (
	"context"
	"strings"

	"github.com/backmassage/symguard/internal/arr"
	"github.com/backmassage/symguard/internal/config"
	"github.com/backmassage/symguard/internal/naming"
)

// Titles groups the distinct names resolved from deleted paths, in first-seen
// order. Unknown paths are dropped.
type Titles struct {
	Series []string
	Movies []string
	// Unresolved counts paths that resolved to Unknown.
	Unresolved int
}

// CollectTitles resolves every path and keeps each series and movie name once.
func CollectTitles(paths []string) Titles {
	var t Titles
	seenSeries := make(map[string]bool)
	seenMovies := make(map[string]bool)
	for _, p := range paths {
		info := naming.Resolve(p)
		switch info.Kind {
		case naming.KindSeries:
			if !seenSeries[info.Name] {
				seenSeries[info.Name] = true
				t.Series = append(t.Series, info.Name)
			}
		case naming.KindMovie:
			if !seenMovies[info.Name] {
				seenMovies[info.Name] = true
				t.Movies = append(t.Movies, info.Name)
			}
		default:
			t.Unresolved++
		}
	}
	return t
}

// MatchTitle returns the first catalog item whose title contains name,
// ignoring case.
func MatchTitle(catalog []arr.CatalogItem, name string) (arr.CatalogItem, bool) {
	needle := strings.ToLower(name)
	for _, item := range catalog {
		if strings.Contains(strings.ToLower(item.Title), needle) {
			return item, true
		}
	}
	return arr.CatalogItem{}, false
}

// catalogTarget describes how one service is refreshed per title.
type catalogTarget struct {
	service string
	command string
	fetch   func(*arr.Client, context.Context) ([]arr.CatalogItem, error)
	build   func(name string, id int) arr.Command
}

var (
	seriesTarget = catalogTarget{
		service: config.ServiceSonarr,
		command: "RefreshSeries",
		fetch:   (*arr.Client).Series,
		build:   func(name string, id int) arr.Command { return arr.Command{Name: name, SeriesID: id} },
	}
	movieTarget = catalogTarget{
		service: config.ServiceRadarr,
		command: "RefreshMovie",
		fetch:   (*arr.Client).Movies,
		build:   func(name string, id int) arr.Command { return arr.Command{Name: name, MovieID: id} },
	}
)

// Individual resolves the deleted paths to titles and sends one refresh
// command per distinct title found in the matching service catalog. Each
// catalog is fetched once.
func (n *Notifier) Individual(ctx context.Context, deleted []string) Summary {
	sum := Summary{Mode: config.NotifyIndividual}
	titles := CollectTitles(deleted)
	n.log.Info("%d series and %d movie(s) to refresh (%d unresolved path(s))",
		len(titles.Series), len(titles.Movies), titles.Unresolved)

	for _, job := range []struct {
		target catalogTarget
		names  []string
	}{
		{seriesTarget, titles.Series},
		{movieTarget, titles.Movies},
	} {
		if len(job.names) == 0 {
			continue
		}
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}
		sum.add(n.refreshTitles(ctx, job.target, job.names))
	}
	if ctx.Err() != nil {
		sum.Interrupted = true
		n.log.Warn("Notification interrupted")
	}
	n.log.Info("Individual notification: %d refresh(es) sent, %d failed", sum.Sent, sum.Failed)
	return sum
}

func (n *Notifier) refreshTitles(ctx context.Context, t catalogTarget, names []string) ServiceResult {
	res := ServiceResult{Service: t.service}

	c, st := n.client(t.service)
	if c == nil {
		res.Status = st
		res.Unmatched = names
		n.log.Warn("%s: not configured (%s); %d title(s) skipped", t.service, st, len(names))
		return res
	}

	catalog, err := t.fetch(c, ctx)
	if err != nil {
		res.Status = StatusUnreachable
		res.Error = err.Error()
		res.Unmatched = names
		n.log.Warn("%s: cannot list catalog: %v", t.service, err)
		return res
	}

	refreshed := make(map[int]bool)
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		item, ok := MatchTitle(catalog, name)
		if !ok {
			res.Unmatched = append(res.Unmatched, name)
			n.log.Warn("%s: not found in catalog: %s", t.service, name)
			continue
		}
		if refreshed[item.ID] {
			n.log.Debug("%s: %s already refreshed", t.service, item.Title)
			continue
		}
		refreshed[item.ID] = true
		out := CommandOutcome{Name: t.command, Title: item.Title, ID: item.ID}
		if err := n.send(ctx, c, t.build(t.command, item.ID)); err != nil {
			out.Error = err.Error()
			n.log.Warn("%s: refresh %s failed: %v", t.service, item.Title, err)
		} else {
			n.log.Success("%s: %s refreshed", t.service, item.Title)
		}
		res.Commands = append(res.Commands, out)
	}

	if len(res.Commands) == 0 {
		res.Status = StatusSkipped
	} else {
		res.Status = statusFor(res.Commands)
	}
	return res
}
