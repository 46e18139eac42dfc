package models

// ConditionOperator compares the condition target against a value.
type ConditionOperator string

const (
	OperatorContains    ConditionOperator = "contains"
	OperatorNotContains ConditionOperator = "not_contains"
)

// ConditionTargetTags is the only condition target currently implemented.
const ConditionTargetTags = "tags"

// EvaluateCondition evaluates a CONDITION node's data against a lead.
// An absent target defaults to "tags", an absent operator to "contains".
// Unknown targets evaluate to false so both misconfigurations branch
// deterministically instead of halting the execution.
func EvaluateCondition(data NodeData, lead *Lead) bool {
	target := data.ConditionTarget
	if target == "" {
		target = ConditionTargetTags
	}

	operator := data.ConditionOperator
	if operator == "" {
		operator = OperatorContains
	}

	if target != ConditionTargetTags {
		return false
	}

	has := lead.HasTag(data.ConditionValue)
	if operator == OperatorNotContains {
		return !has
	}

	return has
}
