package transport

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/quotex-connect/internal/types"
)

// CandleGeneratorConfig configures synthetic candle generation.
type CandleGeneratorConfig struct {
	// InitialPrice is the first open price of every series
	InitialPrice float64
	// Volatility controls price movement per bar (0.002 = 0.2%)
	Volatility float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultCandleGeneratorConfig mirrors a quiet forex pair around 1.1.
func DefaultCandleGeneratorConfig() CandleGeneratorConfig {
	return CandleGeneratorConfig{
		InitialPrice:   1.1,
		Volatility:     0.002,
		VolumeBase:     500,
		VolumeVariance: 0.8,
	}
}

// candleGenerator produces candles following a geometric Brownian motion.
// Not safe for concurrent use; callers hold the transport lock.
type candleGenerator struct {
	rng    *rand.Rand
	config CandleGeneratorConfig
}

func newCandleGenerator(rng *rand.Rand, config CandleGeneratorConfig) *candleGenerator {
	return &candleGenerator{
		rng:    rng,
		config: config,
	}
}

// next builds the candle that follows a bar closing at prevClose.
func (g *candleGenerator) next(asset string, period int, at time.Time, prevClose float64) types.Candle {
	open := prevClose

	// Box-Muller transform for a normally distributed move
	u1 := g.rng.Float64()
	u2 := g.rng.Float64()
	z := math.Sqrt(-2*math.Log(1-u1)) * math.Cos(2*math.Pi*u2)

	closePrice := open * (1 + g.config.Volatility*z)
	if closePrice <= 0 {
		closePrice = open * 0.99
	}

	highExtension := math.Abs(g.rng.Float64() * g.config.Volatility * open * 0.5)
	lowExtension := math.Abs(g.rng.Float64() * g.config.Volatility * open * 0.5)

	high := math.Max(open, closePrice) + highExtension
	low := math.Min(open, closePrice) - lowExtension

	if low <= 0 {
		low = math.Min(open, closePrice) * 0.99
	}

	volume := g.config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*g.config.VolumeVariance)
	if volume < 0 {
		volume = g.config.VolumeBase * 0.1
	}

	return types.Candle{
		Asset:  asset,
		Period: period,
		Time:   at,
		Open:   roundToDecimals(open, 5),
		High:   roundToDecimals(high, 5),
		Low:    roundToDecimals(low, 5),
		Close:  roundToDecimals(closePrice, 5),
		Volume: roundToDecimals(volume, 2),
	}
}

// history builds count consecutive candles ending at the bar that contains end.
func (g *candleGenerator) history(asset string, period int, count int, end time.Time) []types.Candle {
	step := time.Duration(period) * time.Second
	start := end.Truncate(step).Add(-time.Duration(count-1) * step)

	candles := make([]types.Candle, count)
	price := g.config.InitialPrice

	for i := 0; i < count; i++ {
		candles[i] = g.next(asset, period, start.Add(time.Duration(i)*step), price)
		price = candles[i].Close
	}

	return candles
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
