package session

import "strings"

// Language is one of the selectable response languages.
type Language struct {
	Name string `json:"name"`
	Flag string `json:"flag"`
	Code string `json:"code"` // two-letter speech synthesis code
}

// Label returns the flag and name as shown on the language picker.
func (l Language) Label() string {
	return l.Flag + " " + l.Name
}

// Languages lists the supported languages in picker order. The first entry
// is the fallback for unknown names.
var Languages = []Language{
	{Name: "English", Flag: "🇺🇸", Code: "en"},
	{Name: "हिंदी", Flag: "🇮🇳", Code: "hi"},
	{Name: "తెలుగు", Flag: "🇮🇳", Code: "te"},
	{Name: "മലയാളം", Flag: "🇮🇳", Code: "ml"},
}

// LookupLanguage finds a language by display name, picker label or code.
// ASCII input is matched case-insensitively.
func LookupLanguage(s string) (Language, bool) {
	s = strings.TrimSpace(s)
	for _, l := range Languages {
		if s == l.Name || s == l.Label() || strings.EqualFold(s, l.Name) || strings.EqualFold(s, l.Code) {
			return l, true
		}
	}
	return Language{}, false
}

// SpeechCode maps a language name to its synthesis code, defaulting to the
// first supported language.
func SpeechCode(name string) string {
	if l, ok := LookupLanguage(name); ok {
		return l.Code
	}
	return Languages[0].Code
}

var exampleDocumentQuestions = map[string][]string{
	"English": {"What disease is this?", "How do I treat this crop issue?", "When should I harvest?"},
	"हिंदी":   {"यह कौन-सी बीमारी है?", "इस फसल समस्या का इलाज कैसे करें?", "कटाई कब करनी चाहिए?"},
	"తెలుగు":  {"ఇది ఏ వ్యాధి?", "ఈ పంట సమస్యను ఎలా పరిష్కరించాలి?", "పంటను ఎప్పుడు కోయాలి?"},
	"മലയാളം":  {"ഇത് ഏത് രോഗമാണ്?", "ഈ വിള പ്രശ്നം എങ്ങനെ പരിഹരിക്കാം?", "എപ്പോൾ കൊയ്ത്ത് നടത്തണം?"},
}

var exampleGeneralQuestions = map[string][]string{
	"English": {"Tomato leaves are yellow—cause?", "How to identify pest damage?", "Best time to plant corn?"},
	"हिंदी":   {"टमाटर के पत्ते पीले—कारण?", "कीट नुकसान कैसे पहचानें?", "मक्का बोने का सही समय?"},
	"తెలుగు":  {"టమోటా ఆకులు పసుపు—కారణం?", "కీటకాల నష్టం ఎలా గుర్తించాలి?", "మొక్కజొన్న ఎప్పుడు నాటాలి?"},
	"മലയാളം":  {"തക്കാളി ഇലകൾ മഞ്ഞ—കാരണം?", "കീടനാശം എങ്ങനെ തിരിച്ചറിയാം?", "മക്ക ചോളം വിതയ്ക്കാൻ മികച്ച സമയം?"},
}

// ExampleDocumentQuestions returns suggested questions about an uploaded document.
func ExampleDocumentQuestions(language string) []string {
	return append([]string(nil), exampleDocumentQuestions[language]...)
}

// ExampleGeneralQuestions returns suggested general farming questions.
func ExampleGeneralQuestions(language string) []string {
	return append([]string(nil), exampleGeneralQuestions[language]...)
}
