// Package ml implements the small set of estimators the analysis needs.
// Scaling, ordinary least squares and error metrics delegate to scigo; CART
// regression trees with random forest and gradient boosting ensembles and an
// isolation forest are implemented here on gonum.
//
// Inputs are gonum matrices with one row per sample. Every randomized
// estimator takes an explicit seed so that a run is reproducible.
package ml

import "errors"

// ErrModelFit reports input an estimator cannot be fitted to, such as an
// empty training set or a singular design matrix.
var ErrModelFit = errors.New("model fit failed")
