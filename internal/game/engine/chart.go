package engine

import (
	"math"
	"time"

	"karma-tycoon/internal/model"
)

// Bucket returns the candle bucket index of now for a timeframe in seconds.
func Bucket(now time.Time, timeframe int) int64 {
	if timeframe <= 0 {
		timeframe = 1
	}
	return int64(math.Floor(float64(now.UnixMilli()) / 1000 / float64(timeframe)))
}

// chartUpdate records one flush in the OHLC series.
type chartUpdate struct {
	Bucket    int64
	Timeframe int
	KPS       float64
	Volume    float64
	Limit     int
}

func (c chartUpdate) Apply(s *model.State) {
	open := s.Candle
	if open != nil && open.Bucket == c.Bucket {
		open.High = math.Max(open.High, c.KPS)
		open.Low = math.Min(open.Low, c.KPS)
		open.Close = c.KPS
		open.Volume += c.Volume
		return
	}
	if open != nil {
		s.History = append(s.History, *open)
		if over := len(s.History) - c.Limit; c.Limit > 0 && over > 0 {
			s.History = append(s.History[:0:0], s.History[over:]...)
		}
	}
	s.Candle = &model.Candle{
		Bucket: c.Bucket,
		Time:   c.Bucket * int64(c.Timeframe),
		Open:   c.KPS,
		High:   c.KPS,
		Low:    c.KPS,
		Close:  c.KPS,
		Volume: c.Volume,
	}
}

func (e *Engine) chartEffect(now time.Time, kps, volume float64) chartUpdate {
	tf := e.state.ChartTimeframe
	return chartUpdate{
		Bucket:    Bucket(now, tf),
		Timeframe: tf,
		KPS:       kps,
		Volume:    volume,
		Limit:     e.cfg.HistorySize,
	}
}
