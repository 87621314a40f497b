package query

import "regexp"

// Intent names the broad kind of question being asked.
type Intent string

const (
	IntentSpecificContent   Intent = "SPECIFIC_CONTENT"
	IntentVisualDescription Intent = "VISUAL_DESCRIPTION"
	IntentFactualLookup     Intent = "FACTUAL_LOOKUP"
	IntentComparison        Intent = "COMPARISON"
	IntentSummary           Intent = "SUMMARY"
	IntentFollowUp          Intent = "FOLLOW_UP"
	IntentGeneral           Intent = "GENERAL"
)

type intentRule struct {
	intent  Intent
	pattern *regexp.Regexp
}

// intentRules is evaluated top to bottom; the first match wins.
var intentRules = []intentRule{
	{IntentSpecificContent, regexp.MustCompile(`(?i)\b(quote|quotes|quoted|exact|exactly|verbatim|word for word|what does it say|specific (line|lines|passage|sentence|wording|text))\b`)},
	{IntentVisualDescription, regexp.MustCompile(`(?i)\b(describe|look like|looks like|picture|pictures|image|images|photo|photos|diagram|chart|graph|figure|visual|visually|colou?rs?)\b`)},
	{IntentFactualLookup, regexp.MustCompile(`(?i)^\s*(who|what|when|where|which|how (many|much|long|old))\b`)},
	{IntentComparison, regexp.MustCompile(`(?i)\b(compare|compared|comparison|difference|differences|differ|versus|vs\.?|contrast|similarities|similar to)\b`)},
	{IntentSummary, regexp.MustCompile(`(?i)\b(summari[sz]e|summary|overview|main points|key points|key takeaways|tl;?dr|gist|outline)\b`)},
	{IntentFollowUp, regexp.MustCompile(`(?i)\b(tell me more|what else|elaborate|expand on|go on|continue|and also|more details?|the previous|you (said|mentioned))\b`)},
}

// DetectIntent returns the first intent whose pattern matches q, or IntentGeneral.
func DetectIntent(q string) Intent {
	for _, rule := range intentRules {
		if rule.pattern.MatchString(q) {
			return rule.intent
		}
	}
	return IntentGeneral
}
