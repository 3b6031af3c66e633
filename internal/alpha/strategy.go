package alpha

import "fmt"

type Action string

const (
	Convert               Action = "convert"
	ConvertWithAdjustment Action = "convert_with_adjustment"
	CopyAsPNG             Action = "copy_as_png"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Thresholds are calibrated against the target decoder. Both comparisons
// are strict: a risk equal to High is still medium.
type Thresholds struct {
	High   float64 `yaml:"high" json:"high"`
	Medium float64 `yaml:"medium" json:"medium"`

	// Alpha qualities used for medium risk, picked by the dominant factor.
	OpaqueQuality  int `yaml:"opaque_quality" json:"opaque_quality"`
	SemiQuality    int `yaml:"semi_quality" json:"semi_quality"`
	DefaultQuality int `yaml:"default_quality" json:"default_quality"`
	// IconMinQuality is the floor for images classified as UI icons.
	IconMinQuality int `yaml:"icon_min_quality" json:"icon_min_quality"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		High:           0.85,
		Medium:         0.78,
		OpaqueQuality:  70,
		SemiQuality:    60,
		DefaultQuality: 75,
		IconMinQuality: 70,
	}
}

// Strategy is the decision for one image.
type Strategy struct {
	Action    Action
	RiskLevel RiskLevel
	Reason    string
	// AlphaQuality is set only for ConvertWithAdjustment.
	AlphaQuality int
}

// Decide maps an analysis to a strategy.
func (t Thresholds) Decide(a *Analysis) Strategy {
	risk := a.CombinedRisk
	dist := a.Distribution

	switch {
	case risk > t.High:
		reason := fmt.Sprintf("Combined risk score too high (%.3f > %.3f)", risk, t.High)
		if dist.ExtremeOpaque {
			reason += " [Extremely opaque biased]"
		}
		if dist.ExtremeSemi {
			reason += " [Extremely semi-transparent biased]"
		}
		if dist.ComplexSemi {
			reason += " [Complex semi-transparent]"
		}
		if a.UIIcon {
			reason += " [UI icon]"
		}
		return Strategy{Action: CopyAsPNG, RiskLevel: RiskHigh, Reason: reason}

	case risk > t.Medium:
		q := t.DefaultQuality
		if dist.ExtremeOpaque {
			q = t.OpaqueQuality
		} else if dist.ComplexSemi {
			q = t.SemiQuality
		}
		reason := fmt.Sprintf("Combined risk score medium (%.3f)", risk)
		if a.UIIcon {
			reason += " [UI icon optimization]"
			q = max(t.IconMinQuality, q)
		}
		return Strategy{Action: ConvertWithAdjustment, RiskLevel: RiskMedium, Reason: reason, AlphaQuality: q}

	default:
		reason := fmt.Sprintf("Combined risk score low (%.3f)", risk)
		if a.UIIcon {
			reason += " [UI icon safe conversion]"
		}
		return Strategy{Action: Convert, RiskLevel: RiskLow, Reason: reason}
	}
}
