// Package feed simulates a water-quality monitoring station: a live feed that
// emits one reading per interval, and a historical backfill over a range.
package feed

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/jwulff/sensorviz/internal/dataset"
)

// ClassColumn holds the predicted water class of each reading.
const ClassColumn = "Predicted_Class"

// Schema is the fixed column layout of simulated readings.
var Schema = dataset.Schema{
	{Name: "time", Type: dataset.TypeDatetime},
	{Name: "Ph_Sensor", Type: dataset.TypeNumber},
	{Name: "ORP_Sensor", Type: dataset.TypeNumber},
	{Name: "CT_Sensor", Type: dataset.TypeNumber},
	{Name: "TDS_Sensor", Type: dataset.TypeNumber},
	{Name: "NH_Sensor", Type: dataset.TypeNumber},
	{Name: "DO_Sensor", Type: dataset.TypeNumber},
	{Name: "TR_Sensor", Type: dataset.TypeNumber},
	{Name: "BOD_Sensor", Type: dataset.TypeNumber},
	{Name: "COD_Sensor", Type: dataset.TypeNumber},
	{Name: ClassColumn, Type: dataset.TypeString},
}

// Classes are the water quality classes a reading may be assigned.
var Classes = []string{"I", "II", "III", "IV", "V"}

// Sensor is the value range of one simulated probe: [Base, Base+Spread).
type Sensor struct {
	Name   string
	Base   float64
	Spread float64
	Digits int
}

// Sensors lists every simulated probe in column order.
var Sensors = []Sensor{
	{"Ph_Sensor", 7, 0.5, 3},
	{"ORP_Sensor", 0.95, 0.05, 4},
	{"CT_Sensor", 0.01, 0.05, 4},
	{"TDS_Sensor", 25, 5, 3},
	{"NH_Sensor", 5, 3, 3},
	{"DO_Sensor", 6, 1, 3},
	{"TR_Sensor", 30, 20, 3},
	{"BOD_Sensor", 1300, 150, 3},
	{"COD_Sensor", 500, 100, 3},
}

// Generator produces random readings. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. Equal seeds give equal sequences.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Row generates one reading stamped at.
func (g *Generator) Row(at time.Time) dataset.Record {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec := dataset.Record{"time": dataset.Timestamp(at.UTC())}
	for _, s := range Sensors {
		rec[s.Name] = dataset.Number(round(s.Base+g.rng.Float64()*s.Spread, s.Digits))
	}
	rec[ClassColumn] = dataset.Text(Classes[g.rng.Intn(len(Classes))])
	return rec
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

// BackfillRows is the number of readings a backfill produces.
const BackfillRows = 10

// Backfill generates BackfillRows readings from start, evenly spaced by
// max(1ms, (end-start)/BackfillRows).
func (g *Generator) Backfill(start, end time.Time) []dataset.Record {
	step := end.Sub(start) / BackfillRows
	if step < time.Millisecond {
		step = time.Millisecond
	}
	step = step.Truncate(time.Millisecond)
	rows := make([]dataset.Record, BackfillRows)
	for i := range rows {
		rows[i] = g.Row(start.Add(time.Duration(i) * step))
	}
	return rows
}

// NewDataset wraps simulated rows in a dataset with the fixed schema.
func NewDataset(id string, rows []dataset.Record) *dataset.Dataset {
	ds := dataset.New(id, Schema, rows)
	for _, s := range Sensors {
		ds.Missing[s.Name] = 0
		ds.OutOfRange[s.Name] = 0
	}
	return ds
}
