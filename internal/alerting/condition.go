package alerting

import "fmt"

// Condition operators for threshold rules built from configuration or the
// API, where conditions cannot be expressed as code.
const (
	OperatorGreaterThan    = "greater_than"
	OperatorLessThan       = "less_than"
	OperatorGreaterOrEqual = "greater_or_equal"
	OperatorLessOrEqual    = "less_or_equal"
	OperatorEqual          = "equal"
)

// ThresholdCondition builds a condition comparing a snapshot metric against
// a fixed threshold. A missing metric never satisfies the condition.
func ThresholdCondition(metric, operator string, threshold float64) (Condition, error) {
	switch operator {
	case OperatorGreaterThan, OperatorLessThan, OperatorGreaterOrEqual, OperatorLessOrEqual, OperatorEqual:
	default:
		return nil, fmt.Errorf("unknown condition operator %q", operator)
	}
	return func(s Snapshot) bool {
		v, ok := s.Float(metric)
		if !ok {
			return false
		}
		switch operator {
		case OperatorGreaterThan:
			return v > threshold
		case OperatorLessThan:
			return v < threshold
		case OperatorGreaterOrEqual:
			return v >= threshold
		case OperatorLessOrEqual:
			return v <= threshold
		case OperatorEqual:
			return v == threshold
		default:
			return false
		}
	}, nil
}
