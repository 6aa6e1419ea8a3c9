// Package footprint turns calculator form answers into the fixed-width
// feature vector expected by the emission model, and computes the total
// monthly footprint together with its per-category breakdown.
//
// A breakdown entry is the model's prediction for a copy of the feature
// vector in which every column outside the category has been zeroed.
package footprint
