package metrics

// Wrapper exposes the collectors through small method-based surfaces so
// the registry and prediction service can depend on narrow interfaces
// instead of this package's concrete types.
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

// registry.LoadObserver

func (w *Wrapper) ModelLoaded()     { w.m.ModelsLoaded.Inc() }
func (w *Wrapper) ModelLoadFailed() { w.m.ModelLoadFailures.Inc() }

// predict.Metrics

func (w *Wrapper) PredictionsInc()            { w.m.PredictionsTotal.Inc() }
func (w *Wrapper) FailuresInc()               { w.m.PredictionFailures.Inc() }
func (w *Wrapper) FallbackInc()               { w.m.FallbackUse.Inc() }
func (w *Wrapper) LatencyObserve(v float64)   { w.m.PredictionLatency.Observe(v) }
func (w *Wrapper) BatchSizeObserve(v float64) { w.m.BatchSize.Observe(v) }
func (w *Wrapper) ConfidenceObserve(v float64) {
	w.m.ConfidenceScores.Observe(v)
}

// Dataset and dashboard gauges.

func (w *Wrapper) DatasetRecordsSet(n float64) { w.m.DatasetRecords.Set(n) }
func (w *Wrapper) LiveClientsAdd(delta float64) {
	w.m.LiveClients.Add(delta)
}
