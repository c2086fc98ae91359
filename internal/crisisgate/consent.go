package crisisgate

import (
	"strings"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/types"
)

// localeResources maps a locale to its support resource. Text only; no
// transition in this package ever contacts these services.
var localeResources = map[string]types.Resource{
	"US": {
		Label:   "988 Suicide & Crisis Lifeline",
		Details: "Call or text 988, or chat at 988lifeline.org. Available 24/7.",
	},
	"UK": {
		Label:   "Samaritans",
		Details: "Call 116 123 free, any time, or email jo@samaritans.org.",
	},
	"CA": {
		Label:   "Talk Suicide Canada",
		Details: "Call 1-833-456-4566, available 24/7, or text 45645 in the evenings.",
	},
	"AU": {
		Label:   "Lifeline Australia",
		Details: "Call 13 11 14, available 24/7, or text 0477 13 11 14.",
	},
}

func (g *Gate) resource() types.Resource {
	if r, ok := localeResources[g.locale]; ok {
		return r
	}
	return localeResources["US"]
}

// BuildConsentPrompt returns the canned consent dialog for a risk level.
// It never embeds user content. High risk offers three labeled options;
// lower levels a yes/no.
func (g *Gate) BuildConsentPrompt(level types.RiskLevel) string {
	switch level {
	case types.RiskHigh:
		return strings.Join([]string{
			"I hear how much pain you're in, and I want to check what would feel right before we go on.",
			"A) Stay with me and keep talking here.",
			"B) I can share a support resource you could reach out to.",
			"C) You'd like help connecting with someone urgently.",
			"Just reply A, B, or C.",
		}, "\n")
	case types.RiskMedium, types.RiskLow:
		return strings.Join([]string{
			"That sounds heavy. Would it help if I shared a support resource?",
			"Reply Y for yes or N for no — either is completely okay.",
		}, "\n")
	default:
		return ""
	}
}

// reprompt is returned alongside an unknown action so the caller can ask
// again without locking the user out.
const reprompt = "I didn't catch that. You can reply with one of the options above, in a word or a letter."

// escalateConsentText asks for one more explicit yes before any personal
// details are requested. Escalation never proceeds without it.
const escalateConsentText = "Before I help you connect with someone, I need your okay to continue — nothing is shared until you say yes. Shall I go ahead? (yes/no)"

// InterpretReply maps a consent-dialog reply to an action. Pure and total;
// anything unrecognized comes back as ActionUnknown with a re-prompt.
func (g *Gate) InterpretReply(reply string, level types.RiskLevel) types.ConsentReply {
	norm := strings.ToLower(strings.TrimSpace(reply))
	norm = strings.TrimRight(norm, ".!")

	switch norm {
	case "a", "stay", "stay with me":
		return types.ConsentReply{
			Action:       types.ActionStay,
			ResponseText: "Okay. I'm here, and we can take this at whatever pace you need.",
		}
	case "c", "escalate", "urgent":
		return types.ConsentReply{
			Action:       types.ActionEscalate,
			ResponseText: escalateConsentText,
		}
	case "n", "no", "decline", "no thanks", "no thank you":
		return types.ConsentReply{
			Action:       types.ActionDecline,
			ResponseText: "Of course. We can keep talking, or sit with it quietly — whatever you prefer.",
		}
	}

	// B applies to the high-risk prompt, Y/yes to the others, but a user
	// answering yes to the three-option dialog still clearly wants the
	// resource, so both are accepted at any level.
	switch norm {
	case "b", "y", "yes", "yes please":
		res := g.resource()
		return types.ConsentReply{
			Action:       types.ActionResources,
			ResponseText: "Here is a resource you can reach whenever you're ready: " + res.Label + ". " + res.Details,
			Resources:    &res,
		}
	}

	return types.ConsentReply{
		Action:       types.ActionUnknown,
		ResponseText: reprompt,
	}
}

// InterpretEscalationConsent handles the second, explicit yes/no after an
// escalate choice. Only an affirmative clears the pending escalation.
func (g *Gate) InterpretEscalationConsent(reply string) (consented bool, decisive bool) {
	norm := strings.ToLower(strings.TrimSpace(reply))
	norm = strings.TrimRight(norm, ".!")
	switch norm {
	case "y", "yes", "yes please", "go ahead", "okay", "ok":
		return true, true
	case "n", "no", "stop", "never mind", "nevermind":
		return false, true
	default:
		return false, false
	}
}
