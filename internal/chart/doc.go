// Package chart assembles independently fetched time series into render-ready datasets.
//
// It owns no I/O and no state: series come in already fetched (price candles, moving
// averages, a forecast with bounds, daily sentiment, portfolio and benchmark values) and a
// RenderDataset comes out, with one timeline shared by every trace and absent values wherever
// a series has nothing to say. Three views are built:
//
//   - price: close plus moving averages, optionally extended by a forecast band;
//   - performance: portfolio and benchmark as percent change from their first value;
//   - sentiment: stacked daily counts plus the net score on a fixed [-1, 1] axis.
//
// Functions here are safe for concurrent use.
package chart
