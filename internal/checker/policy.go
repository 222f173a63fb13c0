package checker

import (
	"context"

	"github.com/open-policy-agent/opa/v1/rego"
)

// aheadOkPolicy decides whether the legacy discourse-ahead-ok tag is allowed
// to suppress the server-ahead check. The rule is deliberately narrow: the
// tag's presence alone is never enough, the operator must also have opted in
// via ignore_server_ahead, closing the gap where the tag alone silently
// suppressed the check. Expressed as Rego rather than a hard-coded if so a
// future policy change (e.g. requiring the tag and the flag to agree) is a
// module edit, not a Go code change.
const aheadOkPolicy = `
package gatekeeper.checker

default suppress = false

suppress if {
	input.ignore_server_ahead == true
}

default deprecation_warning = false

deprecation_warning if {
	input.ignore_server_ahead == true
	input.legacy_tag_present == true
}
`

// AheadOkSuppressionInput is the Rego input for EvaluateAheadOkSuppression.
type AheadOkSuppressionInput struct {
	IgnoreServerAhead bool `json:"ignore_server_ahead"`
	LegacyTagPresent  bool `json:"legacy_tag_present"`
}

// AheadOkSuppressionResult is the policy's decision.
type AheadOkSuppressionResult struct {
	Suppress           bool
	DeprecationWarning bool
}

// EvaluateAheadOkSuppression runs the ahead-ok suppression policy, returning
// whether the server-ahead check should be suppressed for this run and
// whether a deprecation warning should be logged.
func EvaluateAheadOkSuppression(ctx context.Context, input AheadOkSuppressionInput) (AheadOkSuppressionResult, error) {
	suppress, err := evalBool(ctx, "data.gatekeeper.checker.suppress", input)
	if err != nil {
		return AheadOkSuppressionResult{}, err
	}
	deprecated, err := evalBool(ctx, "data.gatekeeper.checker.deprecation_warning", input)
	if err != nil {
		return AheadOkSuppressionResult{}, err
	}
	return AheadOkSuppressionResult{Suppress: suppress, DeprecationWarning: deprecated}, nil
}

func evalBool(ctx context.Context, query string, input AheadOkSuppressionInput) (bool, error) {
	rs, err := rego.New(
		rego.Query(query),
		rego.Input(map[string]interface{}{
			"ignore_server_ahead": input.IgnoreServerAhead,
			"legacy_tag_present":  input.LegacyTagPresent,
		}),
		rego.Module("ahead_ok.rego", aheadOkPolicy),
	).Eval(ctx)
	if err != nil {
		return false, err
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	value, _ := rs[0].Expressions[0].Value.(bool)
	return value, nil
}
