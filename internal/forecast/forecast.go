// Package forecast runs the external demand-forecast job and reads the
// JSON artifact it leaves behind.
package forecast

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoArtifact is returned when the forecast file does not exist.
var ErrNoArtifact = errors.New("forecast artifact not found")

// Point is one day of the overall forecast.
type Point struct {
	DS   string   `json:"ds"`
	Yhat *float64 `json:"yhat"`
	Real *float64 `json:"real"`
}

// Trend describes the product with the strongest growth.
type Trend struct {
	Nombre           string  `json:"nombre"`
	Crecimiento      float64 `json:"crecimiento"`
	VentasActuales   float64 `json:"ventas_actuales"`
	VentasAnteriores float64 `json:"ventas_anteriores"`
}

// Artifact is the decoded forecast file. Sections other than General are
// passed through to clients as-is.
type Artifact struct {
	General               []Point         `json:"general"`
	PorProducto           json.RawMessage `json:"por_producto"`
	PorCombo              json.RawMessage `json:"por_combo,omitempty"`
	ProductoTendencia     Trend           `json:"producto_tendencia"`
	ProductosEstacionales json.RawMessage `json:"productos_estacionales"`
	AlertasStock          json.RawMessage `json:"alertas_stock"`
}

var emptyList = json.RawMessage("[]")

// Empty returns the structure served when no forecast is available.
func Empty() *Artifact {
	a := &Artifact{}
	a.normalize()
	return a
}

func (a *Artifact) normalize() {
	if a.General == nil {
		a.General = []Point{}
	}
	if len(a.PorProducto) == 0 || string(a.PorProducto) == "null" {
		a.PorProducto = emptyList
	}
	if len(a.ProductosEstacionales) == 0 || string(a.ProductosEstacionales) == "null" {
		a.ProductosEstacionales = emptyList
	}
	if len(a.AlertasStock) == 0 || string(a.AlertasStock) == "null" {
		a.AlertasStock = emptyList
	}
	if a.ProductoTendencia.Nombre == "" {
		a.ProductoTendencia.Nombre = "N/A"
	}
}

// Read decodes the artifact at path. A missing file yields ErrNoArtifact.
func Read(path string) (*Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoArtifact
		}
		return nil, fmt.Errorf("read forecast: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}
	a.normalize()
	return &a, nil
}

// Load is Read for display: a missing or unreadable artifact yields the
// empty structure.
func Load(path string) *Artifact {
	a, err := Read(path)
	if err != nil {
		if !errors.Is(err, ErrNoArtifact) {
			log.Printf("ERROR: %v", err)
		}
		return Empty()
	}
	return a
}

// CSVFilename is the download name of the forecast CSV for a given day.
func CSVFilename(now time.Time) string {
	return "forecast_" + now.Format("2006-01-02") + ".csv"
}

// WriteCSV writes the overall forecast as fecha,prediccion,real with the
// prediction rounded to two decimals. Missing values are left empty.
func WriteCSV(w io.Writer, points []Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"fecha", "prediccion", "real"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := cw.Write([]string{p.DS, formatNumber(p.Yhat, 2), formatNumber(p.Real, -1)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatNumber renders v rounded to places decimals; places < 0 keeps it as is.
func formatNumber(v *float64, places int32) string {
	if v == nil {
		return ""
	}
	d := decimal.NewFromFloat(*v)
	if places >= 0 {
		d = d.Round(places)
	}
	return d.String()
}
