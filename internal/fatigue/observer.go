package fatigue

// Observer receives session notifications. Calls are synchronous on the
// goroutine driving the session and must not call back into it.
type Observer interface {
	OnCalibrationStarted()
	OnCalibrationProgress(percent int, ear float64)
	OnCalibrationCompleted(result CalibrationResult)
	OnBlink()
	// OnFatigueDetected fires for frames that emitted events or whose level
	// is above Normal.
	OnFatigueDetected(result Result)
	OnFatigueLevelChanged(level Level)
}

// NopObserver ignores every notification. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) OnCalibrationStarted()                    {}
func (NopObserver) OnCalibrationProgress(int, float64)       {}
func (NopObserver) OnCalibrationCompleted(CalibrationResult) {}
func (NopObserver) OnBlink()                                 {}
func (NopObserver) OnFatigueDetected(Result)                 {}
func (NopObserver) OnFatigueLevelChanged(Level)              {}

// Observers fans notifications out in order.
type Observers []Observer

func (o Observers) OnCalibrationStarted() {
	for _, obs := range o {
		obs.OnCalibrationStarted()
	}
}

func (o Observers) OnCalibrationProgress(percent int, ear float64) {
	for _, obs := range o {
		obs.OnCalibrationProgress(percent, ear)
	}
}

func (o Observers) OnCalibrationCompleted(result CalibrationResult) {
	for _, obs := range o {
		obs.OnCalibrationCompleted(result)
	}
}

func (o Observers) OnBlink() {
	for _, obs := range o {
		obs.OnBlink()
	}
}

func (o Observers) OnFatigueDetected(result Result) {
	for _, obs := range o {
		obs.OnFatigueDetected(result)
	}
}

func (o Observers) OnFatigueLevelChanged(level Level) {
	for _, obs := range o {
		obs.OnFatigueLevelChanged(level)
	}
}
