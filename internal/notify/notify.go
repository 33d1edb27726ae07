// Package notify tells the media-library services about deleted files,
// either with one coarse rescan per service (bulk) or with one targeted
// refresh per distinct resolved title (individual).
package notify

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/backmassage/symguard/internal/arr"
	"github.com/backmassage/symguard/internal/config"
)

// Status is the per-service notification outcome.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusPartial     Status = "partial"
	StatusFailed      Status = "failed"
	StatusDisabled    Status = "disabled"
	StatusNoAPIKey    Status = "no_api_key"
	StatusUnreachable Status = "unreachable"
	StatusUnsupported Status = "unsupported"
	StatusSkipped     Status = "skipped"
)

// BulkCommands lists the rescan commands sent to each service in bulk mode.
var BulkCommands = map[string][]string{
	config.ServiceSonarr:   {"RescanSeries", "MissingEpisodeSearch"},
	config.ServiceRadarr:   {"RescanMovie", "MissingMoviesSearch"},
	config.ServiceBazarr:   {"SeriesSearchMissing", "MoviesSearchMissing"},
	config.ServiceProwlarr: {"IndexerSearch"},
}

// Logger is the minimal logging interface needed by Notifier.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Debug(string, ...interface{})
}

// CommandOutcome is one command sent to a service.
type CommandOutcome struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	ID    int    `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// OK reports whether the service accepted the command.
func (c CommandOutcome) OK() bool { return c.Error == "" }

// ServiceResult is what happened for one service.
type ServiceResult struct {
	Service   string           `json:"service"`
	Status    Status           `json:"status"`
	Commands  []CommandOutcome `json:"commands,omitempty"`
	Unmatched []string         `json:"unmatched,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Summary is the outcome of one notification pass.
type Summary struct {
	Mode        config.NotifyMode `json:"mode"`
	Services    []ServiceResult   `json:"services"`
	Sent        int               `json:"sent"`
	Failed      int               `json:"failed"`
	Interrupted bool              `json:"interrupted,omitempty"`
}

func (s *Summary) add(r ServiceResult) {
	for _, c := range r.Commands {
		if c.OK() {
			s.Sent++
		} else {
			s.Failed++
		}
	}
	s.Services = append(s.Services, r)
}

// Options configures a Notifier.
type Options struct {
	Services     []config.Service
	HTTP         *http.Client
	CommandDelay time.Duration
	// KeyPaths are searched for a config.xml key when a service has none.
	KeyPaths []string
	KeyVars  arr.KeyPathVars
}

// Notifier sends refresh commands. It is used from one goroutine.
type Notifier struct {
	services []config.Service
	http     *http.Client
	delay    time.Duration
	keyPaths []string
	keyVars  arr.KeyPathVars
	log      Logger

	limiters map[string]*rate.Limiter
	clients  map[string]*arr.Client
}

// New returns a Notifier for the given services.
func New(opts Options, log Logger) *Notifier {
	hc := opts.HTTP
	if hc == nil {
		hc = arr.NewHTTPClient(arr.ClientConfig{Retry: arr.DefaultRetryPolicy()})
	}
	return &Notifier{
		services: opts.Services,
		http:     hc,
		delay:    opts.CommandDelay,
		keyPaths: opts.KeyPaths,
		keyVars:  opts.KeyVars,
		log:      log,
		limiters: make(map[string]*rate.Limiter),
		clients:  make(map[string]*arr.Client),
	}
}

// ErrUnknownMode is returned by Notify for an unsupported mode.
var ErrUnknownMode = errors.New("unknown notification mode")

// Notify runs the given strategy. Deleted paths are only used by the
// individual strategy.
func (n *Notifier) Notify(ctx context.Context, mode config.NotifyMode, deleted []string) (Summary, error) {
	switch mode {
	case config.NotifyBulk:
		return n.Bulk(ctx), nil
	case config.NotifyIndividual:
		return n.Individual(ctx, deleted), nil
	case config.NotifyNone:
		return Summary{Mode: mode}, nil
	default:
		return Summary{Mode: mode}, ErrUnknownMode
	}
}

// client returns a ready client for the named service, or the status
// explaining why there is none.
func (n *Notifier) client(name string) (*arr.Client, Status) {
	if c, ok := n.clients[name]; ok {
		return c, StatusSuccess
	}
	svc, ok := n.lookup(name)
	if !ok || !svc.Enabled || svc.URL == "" {
		return nil, StatusDisabled
	}
	key := svc.APIKey
	if key == "" && len(n.keyPaths) > 0 {
		if k, path, err := arr.DetectAPIKey(name, n.keyPaths, n.keyVars); err == nil {
			n.log.Debug("%s: API key detected in %s", name, path)
			key = k
		}
	}
	if key == "" {
		return nil, StatusNoAPIKey
	}
	c := arr.NewClient(name, svc.URL, key, n.http)
	n.clients[name] = c
	return c, StatusSuccess
}

func (n *Notifier) lookup(name string) (config.Service, bool) {
	for _, s := range n.services {
		if s.Name == name {
			return s, true
		}
	}
	return config.Service{}, false
}

// send waits for the per-service spacing and posts one command.
func (n *Notifier) send(ctx context.Context, c *arr.Client, cmd arr.Command) error {
	lim, ok := n.limiters[c.Name]
	if !ok {
		limit := rate.Inf
		if n.delay > 0 {
			limit = rate.Every(n.delay)
		}
		lim = rate.NewLimiter(limit, 1)
		n.limiters[c.Name] = lim
	}
	if err := lim.Wait(ctx); err != nil {
		return err
	}
	_, err := c.Command(ctx, cmd)
	return err
}

func statusFor(cmds []CommandOutcome) Status {
	ok := 0
	for _, c := range cmds {
		if c.OK() {
			ok++
		}
	}
	switch {
	case ok == len(cmds):
		return StatusSuccess
	case ok == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
