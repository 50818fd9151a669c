// Package arima fits seasonal ARIMA(p,d,q)(P,D,Q)[m] models to a univariate
// series and produces point forecasts with confidence bounds.
//
// The pipeline is:
//
//	raw series → seasonal differencing → non-seasonal differencing → centering
//	→ Hannan-Rissanen estimation → recursive ARMA forecast
//	→ un-centering → non-seasonal integration → seasonal integration
//
// Model selection (SelectBestModel, Forecast) runs the pipeline for every
// candidate order in a bounded grid, ranks candidates by a validation score
// and refits the winner on the full series. Candidates are evaluated
// concurrently; each owns its Params and scratch buffers.
//
// The package does no I/O. NaN and Inf inputs are not supported.
package arima
