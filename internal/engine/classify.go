// SPDX-License-Identifier: MIT
package engine

// Action is what a pipeline does once both tracking counts are known.
type Action string

const (
	ActionNone         Action = "NoActionNeeded"
	ActionFastForward  Action = "FastForwardMerge"
	ActionPush         Action = "Push"
	ActionReportPush   Action = "ReportPushNeeded"
	ActionFlagDiverged Action = "FlagManualResolution"
)

// Classify maps ahead/behind counts to an action. Diverged branches are
// never merged or pushed automatically.
func Classify(ahead, behind int, pushEnabled bool) Action {
	switch {
	case ahead > 0 && behind > 0:
		return ActionFlagDiverged
	case ahead > 0:
		if pushEnabled {
			return ActionPush
		}
		return ActionReportPush
	case behind > 0:
		return ActionFastForward
	default:
		return ActionNone
	}
}
