package predict

import (
	"fmt"
	"math"

	"evpredict/internal/model"
)

// Location is one candidate site: 18 nearby amenity/infrastructure
// counts plus population, with coordinates carried for identification
// only. Absent numeric fields keep their zero defaults; that is valid
// input, not an error.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Parking         int     `json:"parking"`
	Edges           int     `json:"edges"`
	ParkingSpace    int     `json:"parking_space"`
	Civic           int     `json:"civic"`
	Restaurant      int     `json:"restaurant"`
	Park            int     `json:"park"`
	School          int     `json:"school"`
	Node            int     `json:"node"`
	CommunityCenter int     `json:"community_centre"`
	PlaceOfWorship  int     `json:"place_of_worship"`
	University      int     `json:"university"`
	Cinema          int     `json:"cinema"`
	Library         int     `json:"library"`
	Commercial      int     `json:"commercial"`
	Retail          int     `json:"retail"`
	Townhall        int     `json:"townhall"`
	Government      int     `json:"government"`
	Residential     int     `json:"residential"`
	Population      float64 `json:"population"`
}

// Vector lays the features out in model.FeatureNames order. Coordinates
// are deliberately excluded; the models never see them.
func (l *Location) Vector() []float64 {
	return []float64{
		float64(l.Parking),
		float64(l.Edges),
		float64(l.ParkingSpace),
		float64(l.Civic),
		float64(l.Restaurant),
		float64(l.Park),
		float64(l.School),
		float64(l.Node),
		float64(l.CommunityCenter),
		float64(l.PlaceOfWorship),
		float64(l.University),
		float64(l.Cinema),
		float64(l.Library),
		float64(l.Commercial),
		float64(l.Retail),
		float64(l.Townhall),
		float64(l.Government),
		float64(l.Residential),
		l.Population,
	}
}

// vectorize stacks the batch into a feature matrix in input order,
// rejecting non-finite values so a bad record fails the whole batch
// before any model call.
func vectorize(locations []Location) ([][]float64, error) {
	x := make([][]float64, len(locations))
	for i := range locations {
		row := locations[i].Vector()
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("record %d: feature %q is not finite", i, model.FeatureNames[j])
			}
		}
		x[i] = row
	}
	return x, nil
}
