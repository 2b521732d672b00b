package injection

import "regexp"

// Rule defines a prompt injection detection pattern.
type Rule struct {
	Name     string
	Regex    *regexp.Regexp
	Severity float64 // 0.0 to 1.0
	Category string  // "instruction_bypass", "role_override", "output_steering", "label_injection"
}

// DefaultRules returns the built-in rules. They target attempts to steer the
// intent classifier, in English and German.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "ignore_previous",
			Regex:    regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+)?(previous|prior|above)\s+(instructions|rules|context)`),
			Severity: 0.95,
			Category: "instruction_bypass",
		},
		{
			Name:     "ignoriere_anweisungen",
			Regex:    regexp.MustCompile(`(?i)(ignoriere|vergiss|missachte)\s+(alle\s+)?(vorherigen|bisherigen|obigen)\s+(anweisungen|regeln|instruktionen)`),
			Severity: 0.95,
			Category: "instruction_bypass",
		},
		{
			Name:     "intent_field",
			Regex:    regexp.MustCompile(`(?i)"?intent"?\s*[:=]\s*"?(create_image|edit_image|unknown)`),
			Severity: 0.9,
			Category: "label_injection",
		},
		{
			Name:     "confidence_field",
			Regex:    regexp.MustCompile(`(?i)"confidence"\s*:`),
			Severity: 0.85,
			Category: "label_injection",
		},
		{
			Name:     "jailbreak",
			Regex:    regexp.MustCompile(`(?i)\b(DAN\s+mode|do\s+anything\s+now|jailbreak|unrestricted\s+mode)\b`),
			Severity: 0.9,
			Category: "role_override",
		},
		{
			Name:     "code_block_system",
			Regex:    regexp.MustCompile("(?i)```system"),
			Severity: 0.9,
			Category: "role_override",
		},
		{
			Name:     "system_prefix",
			Regex:    regexp.MustCompile(`(?i)^\s*system\s*:\s*`),
			Severity: 0.85,
			Category: "role_override",
		},
		{
			Name:     "developer_mode",
			Regex:    regexp.MustCompile(`(?i)(developer|debug|admin|root)\s+mode\s+(enabled|activated|on)`),
			Severity: 0.85,
			Category: "role_override",
		},
		{
			Name:     "classify_as",
			Regex:    regexp.MustCompile(`(?i)(classify|categori[sz]e|label)\s+(this|it|the\s+request)\s+as`),
			Severity: 0.8,
			Category: "output_steering",
		},
		{
			Name:     "klassifiziere_als",
			Regex:    regexp.MustCompile(`(?i)(klassifiziere|stufe|kategorisiere)\s+(das|dies|es|diese\s+anfrage)\s+(als|ein)`),
			Severity: 0.8,
			Category: "output_steering",
		},
		{
			Name:     "answer_only",
			Regex:    regexp.MustCompile(`(?i)(respond|answer|reply)\s+only\s+with`),
			Severity: 0.75,
			Category: "output_steering",
		},
		{
			Name:     "antworte_nur",
			Regex:    regexp.MustCompile(`(?i)antworte\s+(nur|ausschließlich|ausschliesslich)\s+mit`),
			Severity: 0.75,
			Category: "output_steering",
		},
		{
			Name:     "intent_label",
			Regex:    regexp.MustCompile(`(?i)\b(create_image|edit_image)\b`),
			Severity: 0.7,
			Category: "label_injection",
		},
		{
			Name:     "you_are_now",
			Regex:    regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)\s+`),
			Severity: 0.7,
			Category: "role_override",
		},
		{
			Name:     "du_bist_jetzt",
			Regex:    regexp.MustCompile(`(?i)du\s+bist\s+(jetzt|nun|ab\s+sofort)\s+(ein|eine|der|die|das)\s+`),
			Severity: 0.7,
			Category: "role_override",
		},
	}
}
