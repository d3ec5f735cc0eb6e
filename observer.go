package romflash

import "time"

// Observer is the user-facing surface of a Session: a one-line status, a
// progress percentage and alerts for fatal errors. Calls may come from any
// goroutine.
type Observer interface {
	Status(text string)
	Progress(percent int)
	Alert(message string)
}

type nopObserver struct{}

func (nopObserver) Status(string) {}
func (nopObserver) Progress(int)  {}
func (nopObserver) Alert(string)  {}

// Metrics records connect and flash outcomes.
type Metrics interface {
	ObserveConnect(outcome string, d time.Duration)
	ObserveRebind(outcome string)
	ObserveFlash(strategy string, bytes int, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveConnect(string, time.Duration)    {}
func (nopMetrics) ObserveRebind(string)                    {}
func (nopMetrics) ObserveFlash(string, int, time.Duration) {}
