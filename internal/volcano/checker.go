package volcano

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-multierror"

	"github.com/i474232898/weather-risk-alerts/internal/alerts"
)

const escalationProbability = 80

var escalationActions = []string{
	"Sigue los reportes oficiales del IGEPN y la SNGR",
	"Ten lista tu mochila de emergencia",
	"Identifica tu ruta de evacuación",
}

// Observation is a status reported by an external source.
type Observation struct {
	Name   string
	Status string
}

// StatusSource reports the current status of monitored volcanoes.
type StatusSource interface {
	Fetch(ctx context.Context) ([]Observation, error)
}

// AlertRecorder stores alerts.
type AlertRecorder interface {
	Record(ctx context.Context, d alerts.Draft) (alerts.Alert, error)
}

// Checker compares observed statuses with the catalog and raises alerts on escalation.
type Checker struct {
	catalog *Catalog
	source  StatusSource
	alerts  AlertRecorder
	now     func() time.Time
}

// NewChecker creates a Checker. A nil source makes Check a logged no-op.
func NewChecker(catalog *Catalog, source StatusSource, rec AlertRecorder) *Checker {
	return &Checker{catalog: catalog, source: source, alerts: rec, now: time.Now}
}

// Check fetches the source once and applies every observation.
func (c *Checker) Check(ctx context.Context) error {
	if c.source == nil {
		log.Println("INFO: volcano check: no status source configured; nothing to do")
		return nil
	}

	obs, err := c.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch volcano status: %w", err)
	}

	var result *multierror.Error
	changed := 0
	for _, o := range obs {
		v, ok := c.catalog.Match(o.Name)
		if !ok || o.Status == "" {
			continue
		}
		prev := c.catalog.SetStatus(v.ID, o.Status, c.now())
		if strings.EqualFold(prev, o.Status) {
			continue
		}
		changed++
		log.Printf("INFO: volcano check: %s changed from %q to %q", v.Name, prev, o.Status)

		if Level(o.Status) <= Level(prev) || Level(o.Status) < LevelActive || c.alerts == nil {
			continue
		}
		_, err := c.alerts.Record(ctx, alerts.Draft{
			Location:    v.Province,
			RiskLevel:   "alto",
			Probability: escalationProbability,
			Message:     fmt.Sprintf("El volcán %s pasó de %s a %s", v.Name, prev, o.Status),
			Actions:     escalationActions,
		})
		switch {
		case errors.Is(err, alerts.ErrBelowThreshold):
			log.Printf("INFO: volcano check: no alert for %s: %v", v.Name, err)
		case err != nil:
			result = multierror.Append(result, fmt.Errorf("%s: %w", v.Name, err))
		}
	}
	log.Printf("INFO: volcano check: %d observations, %d status changes", len(obs), changed)
	return result.ErrorOrNil()
}

// HTMLSource scrapes a status table: each row holds the volcano name in the
// first cell and its status in the second.
type HTMLSource struct {
	URL    string
	Client *http.Client
}

// NewHTMLSource creates an HTMLSource for url.
func NewHTMLSource(url string, client *http.Client) *HTMLSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTMLSource{URL: url, Client: client}
}

func (s *HTMLSource) Fetch(ctx context.Context) ([]Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	res, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the webpage: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d %s", res.StatusCode, res.Status)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the webpage: %w", err)
	}

	var out []Observation
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		name := strings.TrimSpace(cells.Eq(0).Text())
		status := strings.ToLower(strings.TrimSpace(cells.Eq(1).Text()))
		if name == "" || status == "" {
			return
		}
		out = append(out, Observation{Name: name, Status: status})
	})
	return out, nil
}
