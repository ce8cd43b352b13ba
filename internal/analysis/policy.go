package analysis

// Detection thresholds. Percentages are on the 0–100 scale.
const (
	DefaultSampleSize              = 100
	DefaultTypeConfidence          = 0.8
	DefaultTopValuesLimit          = 5
	DefaultIQRMultiplier           = 1.5
	DefaultOutlierMinPercent       = 5.0
	DefaultOutlierHighPercent      = 15.0
	DefaultLongTextAvgLength       = 100.0
	DefaultMixedTypeLowerPercent   = 30.0
	DefaultMixedTypeUpperPercent   = 70.0
	DefaultHighCardinalityPercent  = 95.0
	DefaultExcessiveMissingPercent = 50.0
)

// Quality score weights.
const (
	MissingPenaltyWeight   = 0.5
	DuplicatePenaltyWeight = 0.3
	AnomalyPenaltyEach     = 2.0
	AnomalyPenaltyCap      = 15.0
	SchemaPenaltyEach      = 3.0
	SchemaPenaltyCap       = 10.0
	ZeroVariancePenalty    = 2.0
)

// Policy carries the tunable heuristics. Zero fields fall back to defaults,
// so a partially filled Policy from config is valid.
type Policy struct {
	SampleSize              int     `mapstructure:"sample_size" yaml:"sample_size" json:"sampleSize"`
	TypeConfidence          float64 `mapstructure:"type_confidence" yaml:"type_confidence" json:"typeConfidence"`
	TopValuesLimit          int     `mapstructure:"top_values_limit" yaml:"top_values_limit" json:"topValuesLimit"`
	IQRMultiplier           float64 `mapstructure:"iqr_multiplier" yaml:"iqr_multiplier" json:"iqrMultiplier"`
	OutlierMinPercent       float64 `mapstructure:"outlier_min_percent" yaml:"outlier_min_percent" json:"outlierMinPercent"`
	OutlierHighPercent      float64 `mapstructure:"outlier_high_percent" yaml:"outlier_high_percent" json:"outlierHighPercent"`
	LongTextAvgLength       float64 `mapstructure:"long_text_avg_length" yaml:"long_text_avg_length" json:"longTextAvgLength"`
	MixedTypeLowerPercent   float64 `mapstructure:"mixed_type_lower_percent" yaml:"mixed_type_lower_percent" json:"mixedTypeLowerPercent"`
	MixedTypeUpperPercent   float64 `mapstructure:"mixed_type_upper_percent" yaml:"mixed_type_upper_percent" json:"mixedTypeUpperPercent"`
	HighCardinalityPercent  float64 `mapstructure:"high_cardinality_percent" yaml:"high_cardinality_percent" json:"highCardinalityPercent"`
	ExcessiveMissingPercent float64 `mapstructure:"excessive_missing_percent" yaml:"excessive_missing_percent" json:"excessiveMissingPercent"`
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		SampleSize:              DefaultSampleSize,
		TypeConfidence:          DefaultTypeConfidence,
		TopValuesLimit:          DefaultTopValuesLimit,
		IQRMultiplier:           DefaultIQRMultiplier,
		OutlierMinPercent:       DefaultOutlierMinPercent,
		OutlierHighPercent:      DefaultOutlierHighPercent,
		LongTextAvgLength:       DefaultLongTextAvgLength,
		MixedTypeLowerPercent:   DefaultMixedTypeLowerPercent,
		MixedTypeUpperPercent:   DefaultMixedTypeUpperPercent,
		HighCardinalityPercent:  DefaultHighCardinalityPercent,
		ExcessiveMissingPercent: DefaultExcessiveMissingPercent,
	}
}

// withDefaults fills zero fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.SampleSize <= 0 {
		p.SampleSize = d.SampleSize
	}
	if p.TypeConfidence <= 0 {
		p.TypeConfidence = d.TypeConfidence
	}
	if p.TopValuesLimit <= 0 {
		p.TopValuesLimit = d.TopValuesLimit
	}
	if p.IQRMultiplier <= 0 {
		p.IQRMultiplier = d.IQRMultiplier
	}
	if p.OutlierMinPercent <= 0 {
		p.OutlierMinPercent = d.OutlierMinPercent
	}
	if p.OutlierHighPercent <= 0 {
		p.OutlierHighPercent = d.OutlierHighPercent
	}
	if p.LongTextAvgLength <= 0 {
		p.LongTextAvgLength = d.LongTextAvgLength
	}
	if p.MixedTypeLowerPercent <= 0 {
		p.MixedTypeLowerPercent = d.MixedTypeLowerPercent
	}
	if p.MixedTypeUpperPercent <= 0 {
		p.MixedTypeUpperPercent = d.MixedTypeUpperPercent
	}
	if p.HighCardinalityPercent <= 0 {
		p.HighCardinalityPercent = d.HighCardinalityPercent
	}
	if p.ExcessiveMissingPercent <= 0 {
		p.ExcessiveMissingPercent = d.ExcessiveMissingPercent
	}
	return p
}
