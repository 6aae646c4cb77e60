package weather

import (
	"fmt"
	"math"
	"time"
)

// contextSamples is how many forecast steps go into a prompt (24h at 3h steps).
const contextSamples = 8

var (
	weekdaysES = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	monthsES   = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

// ForecastContext is the JSON document embedded in chat prompts.
type ForecastContext struct {
	Location string         `json:"ubicacion"`
	Country  string         `json:"pais"`
	Steps    []ContextEntry `json:"pronostico_5_dias"`
}

// ContextEntry is one forecast step formatted for the model.
type ContextEntry struct {
	Date            string  `json:"fecha"`
	Hour            string  `json:"hora"`
	Temperature     int     `json:"temperatura"`
	FeelsLike       int     `json:"sensacion_termica"`
	Description     string  `json:"descripcion"`
	Humidity        float64 `json:"humedad"`
	Wind            float64 `json:"viento"`
	RainProbability float64 `json:"probabilidad_lluvia"`
}

// BuildForecastContext formats the first forecast steps in Spanish, using loc
// for wall-clock dates.
func BuildForecastContext(f Forecast, loc *time.Location) ForecastContext {
	if loc == nil {
		loc = time.Local
	}
	n := min(len(f.Samples), contextSamples)

	fc := ForecastContext{
		Location: f.City,
		Country:  f.Country,
		Steps:    make([]ContextEntry, 0, n),
	}
	for _, s := range f.Samples[:n] {
		t := s.Time.In(loc)
		fc.Steps = append(fc.Steps, ContextEntry{
			Date:            SpanishDate(t),
			Hour:            t.Format("15:04"),
			Temperature:     int(math.Round(s.Temperature)),
			FeelsLike:       int(math.Round(s.FeelsLike)),
			Description:     s.Description,
			Humidity:        s.Humidity,
			Wind:            s.WindSpeed,
			RainProbability: math.Round(s.RainProbability*10000) / 100,
		})
	}
	return fc
}

// SpanishDate renders t as "lunes, 15 de octubre".
func SpanishDate(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s", weekdaysES[t.Weekday()], t.Day(), monthsES[t.Month()-1])
}
