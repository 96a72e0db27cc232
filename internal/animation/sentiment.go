package animation

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// sentimentOrder is the priority in which categories are matched.
var sentimentOrder = []string{Error, Confused, Loving, Happy, Idea}

var sentimentKeywords = map[string][]string{
	Error: {
		"erreur", "impossible", "échec", "problème", "désolé", "malheureusement", "excuses",
		"error", "unable", "failed", "failure", "problem", "sorry", "unfortunately", "apolog",
	},
	Confused: {
		"pourriez-vous préciser", "je ne comprends pas", "pouvez-vous clarifier", "ambig", "confus",
		"could you clarify", "can you clarify", "i don't understand", "i do not understand", "could you specify",
	},
	Loving: {
		"impératrice", "majesté", "seigneurie", "altesse", "merci", "avec plaisir", "ravi",
		"majesty", "highness", "thank", "my pleasure", "delighted",
	},
	Happy: {
		"excellent", "parfait", "super", "bravo", "réussi", "génial", "formidable", "mission accomplie",
		"perfect", "great", "success", "awesome", "wonderful", "mission accomplished",
	},
	Idea: {
		"voici", "proposition", "suggestion", "solution", "je propose", "recommandation", "idée",
		"here is", "here's", "proposal", "suggest", "i propose", "recommend", "idea",
	},
}

// Classify maps reply text to a sequence name by keyword lookup. Categories
// are tried in a fixed priority order and the first match wins; text with no
// keyword is "chatting".
func Classify(text string) string {
	lower := cases.Lower(language.Und).String(text)
	for _, category := range sentimentOrder {
		for _, kw := range sentimentKeywords[category] {
			if strings.Contains(lower, kw) {
				return category
			}
		}
	}
	return Chatting
}
