// Package domain implements the fire-risk model: terrain derivatives from a
// Digital Elevation Model (DEM) and the reclassification plus weighted overlay
// that turns them into a 1–5 risk score per cell.
//
// # Grid Conventions
//
// Grids are row-major. Row 0 is the northern edge and column 0 the western
// edge, matching the layout of north-up rasters. The package never looks at
// coordinates; a Georeference travels alongside a grid in the adapters only.
//
// NoData:
//
//	Floating-point grids (elevation, slope, aspect) mark NoData as NaN.
//	Risk grids mark NoData as 0 (RiskNoData). Classification maps NaN to 0,
//	and the overlay forces 0 wherever any input layer is 0.
//
// # Terrain Derivatives
//
// Gradients use Horn's 3×3 estimator over the neighbourhood
//
//	a b c
//	d e f
//	g h i
//
//	dz/dx = ((c + 2f + i) - (a + 2d + g)) / (8 * cellSize)   east minus west
//	dz/dy = ((g + 2h + i) - (a + 2b + c)) / (8 * cellSize)   south minus north
//
// Cells on the grid border read their missing neighbours from the nearest
// in-grid cell. A NaN anywhere in the window makes both outputs NaN.
//
//	slope  = degrees(atan(hypot(dz/dx, dz/dy)))                 in [0, 90]
//	aspect = 90 - degrees(atan2(dz/dy, -dz/dx)), wrapped to [0, 360)
//
// Aspect is a compass bearing of the downslope direction: 0 north, 90 east,
// 180 south, 270 west. Running the kernel through a true convolution, such as
// scipy.ndimage.convolve, flips it to west minus east and reports east-facing
// slopes at 270; the differences above are taken directly to avoid that.
// Cells with slope below FlatSlopeDegrees get AspectFlat (-1) because atan2
// is meaningless for near-zero gradients.
//
// # Risk Scale
//
//	1 Very Low | 2 Low | 3 Moderate | 4 High | 5 Very High
//
// Slope (degrees):
//
//	<5 → 1 | [5,15) → 2 | [15,25) → 3 | [25,35) → 4 | ≥35 → 5
//
// Aspect (bearing):
//
//	flat → 2 | north [315,360)∪[0,45) → 2 | east [45,135) → 3
//	south [135,225) → 5 | west [225,315) → 4
//
// South-facing slopes get the highest class: they take the most sun and dry
// out first.
//
// Vegetation is an input layer. Without fuel data every valid cell is 3
// (Moderate) and the layer is flagged as a default.
//
// # Weighted Overlay
//
//	raw   = ws*slope + wa*aspect + wv*vegetation
//	final = clamp(round(raw), 1, 5), rounding half away from zero
//
// The default weights are slope 0.45, vegetation 0.30, aspect 0.25. Weights
// are always passed explicitly; the overlay itself does not check that they
// sum to one (see Weights.Validate).
package domain
