package cube

import "time"

// Ticker schedules render loop iterations.
type Ticker interface {
	// C delivers one value per scheduled frame.
	C() <-chan time.Time
	// Stop releases the ticker. No more ticks are delivered afterwards.
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

// NewTicker returns a Ticker firing fps times per second. Non-positive fps
// falls back to 60.
func NewTicker(fps int) Ticker {
	if fps <= 0 {
		fps = 60
	}
	return &timeTicker{t: time.NewTicker(time.Second / time.Duration(fps))}
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }
