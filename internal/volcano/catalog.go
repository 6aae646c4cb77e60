// Package volcano serves the monitored volcano list and tracks status changes.
package volcano

import (
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-risk-alerts/internal/common"
)

// Source is the attribution returned with the volcano list.
const Source = "IGEPN Ecuador"

// Volcano is a monitored volcano.
type Volcano struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Altitude   int       `json:"altitude"`
	Province   string    `json:"province"`
	LastUpdate time.Time `json:"lastUpdate"`
}

var defaultVolcanoes = []Volcano{
	{ID: "cotopaxi", Name: "Cotopaxi", Status: "activo", Lat: -0.680, Lon: -78.438, Altitude: 5897, Province: "Latacunga"},
	{ID: "tungurahua", Name: "Tungurahua", Status: "activo", Lat: -1.211, Lon: -78.442, Altitude: 5016, Province: "Ambato"},
	{ID: "chimborazo", Name: "Chimborazo", Status: "dormido", Lat: -1.469, Lon: -78.817, Altitude: 6263, Province: "Riobamba"},
	{ID: "pichincha", Name: "Pichincha", Status: "activo", Lat: -0.359, Lon: -78.506, Altitude: 4784, Province: "Quito"},
	{ID: "antisana", Name: "Antisana", Status: "observacion", Lat: -0.481, Lon: -78.175, Altitude: 5753, Province: "Napo"},
}

type observed struct {
	status string
	at     time.Time
}

// Catalog is the fixed volcano list plus the last observed status of each.
type Catalog struct {
	mu       sync.RWMutex
	base     []Volcano
	observed map[string]observed
}

// NewCatalog returns the catalog of Ecuadorian Sierra volcanoes.
func NewCatalog() *Catalog {
	base := make([]Volcano, len(defaultVolcanoes))
	copy(base, defaultVolcanoes)
	return &Catalog{base: base, observed: make(map[string]observed)}
}

// List returns every volcano. Unobserved entries are stamped with now.
func (c *Catalog) List(now time.Time) []Volcano {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Volcano, len(c.base))
	for i, v := range c.base {
		v.LastUpdate = now.UTC()
		if o, ok := c.observed[v.ID]; ok {
			v.Status = o.status
			v.LastUpdate = o.at.UTC()
		}
		out[i] = v
	}
	return out
}

// Match finds the volcano whose id appears in name ("Volcán Cotopaxi" matches cotopaxi).
func (c *Catalog) Match(name string) (Volcano, bool) {
	n := strings.ToLower(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, v := range c.base {
		if strings.Contains(n, v.ID) {
			if o, ok := c.observed[v.ID]; ok {
				v.Status = o.status
			}
			return v, true
		}
	}
	return Volcano{}, false
}

// SetStatus records an observed status and returns the previous one.
func (c *Catalog) SetStatus(id, status string, at time.Time) (previous string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, v := range c.base {
		if v.ID == id {
			previous = v.Status
		}
	}
	if o, ok := c.observed[id]; ok {
		previous = o.status
	}
	c.observed[id] = observed{status: status, at: at}
	return previous
}

// Activity levels, ordered.
const (
	LevelDormant = iota
	LevelWatch
	LevelActive
	LevelEruptive
)

// Level ranks a free-text status.
func Level(status string) int {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case common.HasAny(s, "erup", "explos", "emisi", "roja"):
		return LevelEruptive
	case common.HasAny(s, "inactiv", "dormid", "extint"):
		return LevelDormant
	case common.HasAny(s, "activ", "naranja"):
		return LevelActive
	case common.HasAny(s, "observ", "vigil", "amarilla"):
		return LevelWatch
	default:
		return LevelDormant
	}
}
