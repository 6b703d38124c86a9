// Package distance provides vector distance calculations.
//
// # Supported Metrics
//
//   - MetricCosine: Cosine distance on L2-normalized vectors (default)
//   - MetricL2: Squared Euclidean distance
//   - MetricDot: Negated dot product (inner product)
//
// Every metric is expressed as a distance where smaller means closer.
// Score converts a distance back into the similarity reported to callers.
//
// # Usage
//
//	d := distance.SquaredL2(a, b)
//	sim := distance.Dot(a, b)
//	unit, ok := distance.NormalizeL2Copy(vec)
package distance
