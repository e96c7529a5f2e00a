package model

// NumFeatures is the dimensionality every loaded classifier must accept.
const NumFeatures = 19

// FeatureNames is the canonical feature ordering the models were trained
// on: 18 amenity/infrastructure counts followed by population. Both
// feature vectorization and importance labeling index into this list, so
// it is the single source of truth for positional pairing.
var FeatureNames = []string{
	"parking",
	"edges",
	"parking_space",
	"civic",
	"restaurant",
	"park",
	"school",
	"node",
	"community_centre",
	"place_of_worship",
	"university",
	"cinema",
	"library",
	"commercial",
	"retail",
	"townhall",
	"government",
	"residential",
	"population",
}
