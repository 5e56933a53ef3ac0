package risk

import (
	"fmt"
	"strings"
)

// Sector names used by the correlation check
const (
	SectorLayer1   = "layer1"
	SectorDeFi     = "defi"
	SectorGaming   = "gaming"
	SectorMemecoin = "memecoin"
)

var sectorOrder = []string{SectorLayer1, SectorDeFi, SectorGaming, SectorMemecoin}

var sectorAssets = map[string][]string{
	SectorLayer1:   {"BTC", "ETH", "SOL", "ADA", "DOT", "AVAX", "ATOM"},
	SectorDeFi:     {"UNI", "LINK", "AAVE", "COMP", "SUSHI", "CRV"},
	SectorGaming:   {"AXS", "MANA", "SAND", "ENJ", "GALA", "ILV"},
	SectorMemecoin: {"DOGE", "SHIB", "PEPE", "FLOKI", "BONK"},
}

var assetSector = func() map[string]string {
	m := make(map[string]string)
	for sector, assets := range sectorAssets {
		for _, a := range assets {
			m[a] = sector
		}
	}
	return m
}()

// BaseAsset returns the text before "/" in a symbol like BTC/USDT
func BaseAsset(symbol string) string {
	base, _, _ := strings.Cut(symbol, "/")
	return strings.ToUpper(strings.TrimSpace(base))
}

// SectorOf returns the sector of a symbol's base asset
func SectorOf(symbol string) (string, bool) {
	s, ok := assetSector[BaseAsset(symbol)]
	return s, ok
}

// Sectors returns the known sector names in display order
func Sectors() []string {
	out := make([]string, len(sectorOrder))
	copy(out, sectorOrder)
	return out
}

// ClassifyRiskLevel maps a risk percentage onto a RiskLevel
func ClassifyRiskLevel(pct float64) RiskLevel {
	switch {
	case pct <= 5:
		return RiskLevelLow
	case pct <= 10:
		return RiskLevelMedium
	case pct <= 15:
		return RiskLevelHigh
	default:
		return RiskLevelExtreme
	}
}

// PositionRisk returns the risk carried by one exposure, 2% of balance when unknown
func PositionRisk(e Exposure, balance float64) float64 {
	if e.RiskKnown {
		return e.RiskAmount
	}
	return balance * unknownPositionRiskPct / 100
}

// CheckPortfolioRisk sums open risk and classifies it
func (c *Calculator) CheckPortfolioRisk(positions []Exposure, balance float64) PortfolioRiskReport {
	report := PortfolioRiskReport{
		MaxRiskAllowed:  balance * c.config.MaxPortfolioRiskPct / 100,
		Warnings:        []string{},
		Recommendations: []string{},
	}

	for _, p := range positions {
		report.TotalRiskUSD += PositionRisk(p, balance)
	}
	if balance > 0 {
		report.RiskPercentage = report.TotalRiskUSD / balance * 100
	}
	report.RiskLevel = ClassifyRiskLevel(report.RiskPercentage)

	if report.RiskPercentage > c.config.MaxPortfolioRiskPct {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Portfolio risk %.2f%% exceeds maximum %.2f%%", report.RiskPercentage, c.config.MaxPortfolioRiskPct))
		report.Recommendations = append(report.Recommendations,
			"Close some positions to reduce portfolio risk")
	}
	if report.RiskLevel == RiskLevelExtreme {
		report.Warnings = append(report.Warnings,
			"EXTREME portfolio risk - consider emergency position reduction")
	}
	return report
}

// CheckCorrelationRisk counts open positions per sector and flags concentration
func (c *Calculator) CheckCorrelationRisk(symbols []string) CorrelationRiskReport {
	report := CorrelationRiskReport{
		SectorExposure:         make(map[string]int, len(sectorOrder)),
		HighCorrelationSectors: []string{},
		Warnings:               []string{},
		Recommendations:        []string{},
	}
	for _, s := range sectorOrder {
		report.SectorExposure[s] = 0
	}

	for _, sym := range symbols {
		if sector, ok := SectorOf(sym); ok {
			report.SectorExposure[sector]++
		}
	}

	for _, sector := range sectorOrder {
		count := report.SectorExposure[sector]
		if count > c.config.MaxCorrelatedPositions {
			report.HighCorrelationSectors = append(report.HighCorrelationSectors, sector)
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("High correlation in %s sector: %d positions (max %d)", sector, count, c.config.MaxCorrelatedPositions))
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Diversify away from %s sector", sector))
		}
	}
	return report
}
