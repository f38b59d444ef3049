package alignment

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
)

type Match string

const (
	MatchExact   Match = "exact"
	MatchModel   Match = "model"
	MatchGeneric Match = "generic"
)

// GenericRanges apply when nothing is known about a vehicle.
var GenericRanges = Ranges{
	FrontToe:    model.Range{Min: -0.15, Max: 0.15},
	RearToe:     model.Range{Min: -0.20, Max: 0.20},
	FrontCamber: model.Range{Min: -0.50, Max: 0.50},
	RearCamber:  model.Range{Min: -0.30, Max: 0.30},
	FrontCaster: model.Range{Min: 2.5, Max: 4.0},
}

type Ranges struct {
	FrontToe    model.Range `json:"frontToe"`
	RearToe     model.Range `json:"rearToe"`
	FrontCamber model.Range `json:"frontCamber"`
	RearCamber  model.Range `json:"rearCamber"`
	FrontCaster model.Range `json:"frontCaster"`
}

func RangesOf(spec model.VehicleSpecification) Ranges {
	return Ranges{
		FrontToe:    spec.FrontToe,
		RearToe:     spec.RearToe,
		FrontCamber: spec.FrontCamber,
		RearCamber:  spec.RearCamber,
		FrontCaster: spec.FrontCaster,
	}
}

// builtin is consulted after the store so a fresh hub still knows a few
// common vehicles.
var builtin = []model.VehicleSpecification{
	{
		Make: "Toyota", Model: "Camry", Year: 2022,
		FrontToe: model.Range{Min: -0.15, Max: 0.15}, RearToe: model.Range{Min: -0.20, Max: 0.20},
		FrontCamber: model.Range{Min: -0.50, Max: 0.50}, RearCamber: model.Range{Min: -0.30, Max: 0.30},
		FrontCaster: model.Range{Min: 2.5, Max: 4.0},
	},
	{
		Make: "Honda", Model: "Accord", Year: 2021,
		FrontToe: model.Range{Min: -0.12, Max: 0.12}, RearToe: model.Range{Min: -0.18, Max: 0.18},
		FrontCamber: model.Range{Min: -0.45, Max: 0.45}, RearCamber: model.Range{Min: -0.25, Max: 0.25},
		FrontCaster: model.Range{Min: 2.8, Max: 4.2},
	},
	{
		Make: "Ford", Model: "F-150", Year: 2023,
		FrontToe: model.Range{Min: -0.20, Max: 0.20}, RearToe: model.Range{Min: -0.25, Max: 0.25},
		FrontCamber: model.Range{Min: -0.60, Max: 0.60}, RearCamber: model.Range{Min: -0.40, Max: 0.40},
		FrontCaster: model.Range{Min: 3.0, Max: 5.0},
	},
}

type Lookup struct {
	Make   string `json:"make"`
	Model  string `json:"model"`
	Year   int    `json:"year"`
	Match  Match  `json:"match"`
	Ranges Ranges `json:"specifications"`
}

// Key folds make and model into the lookup key used for matching, so
// "Ford", "F-150" and "ford", "f 150" are the same vehicle.
func Key(vehicleMake, vehicleModel string) string {
	fold := cases.Fold()
	normalize := strings.NewReplacer("-", "_", " ", "_")
	return fold.String(strings.TrimSpace(vehicleMake)) + "_" + normalize.Replace(fold.String(strings.TrimSpace(vehicleModel)))
}

func YearKey(vehicleMake, vehicleModel string, year int) string {
	return fmt.Sprintf("%s_%d", Key(vehicleMake, vehicleModel), year)
}

// LookupSpecification resolves tolerance ranges for a vehicle: an exact
// make/model/year entry, else the same make and model from the nearest year,
// else the generic ranges. Stored specifications take precedence over the
// built-in table.
func LookupSpecification(ctx context.Context, store repository.Repository, vehicleMake, vehicleModel string, year int) (Lookup, error) {
	candidates, err := store.ListSpecifications(ctx, repository.SpecFilter{})
	if err != nil {
		return Lookup{}, err
	}
	want := Key(vehicleMake, vehicleModel)

	for _, source := range [][]model.VehicleSpecification{candidates, builtin} {
		var best *model.VehicleSpecification
		for i := range source {
			spec := source[i]
			if Key(spec.Make, spec.Model) != want {
				continue
			}
			if best == nil || closer(spec.Year, best.Year, year) {
				best = &source[i]
			}
		}
		if best == nil {
			continue
		}
		match := MatchModel
		if best.Year == year {
			match = MatchExact
		}
		return Lookup{
			Make:   best.Make,
			Model:  best.Model,
			Year:   year,
			Match:  match,
			Ranges: RangesOf(*best),
		}, nil
	}

	return Lookup{
		Make:   vehicleMake,
		Model:  vehicleModel,
		Year:   year,
		Match:  MatchGeneric,
		Ranges: GenericRanges,
	}, nil
}

// closer reports whether candidate is nearer to target than current,
// preferring the newer year on a tie.
func closer(candidate, current, target int) bool {
	dc, dr := abs(candidate-target), abs(current-target)
	if dc != dr {
		return dc < dr
	}
	return candidate > current
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
