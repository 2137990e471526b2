package speech

// ErrorDetail is a single mistake found in a transcript.
type ErrorDetail struct {
	Type        string `json:"type"`
	Original    string `json:"original"`
	Correction  string `json:"correction"`
	Explanation string `json:"explanation"`
}

// GapGraph scores each skill area 0-100.
type GapGraph struct {
	Grammar       int `json:"grammar"`
	Vocabulary    int `json:"vocabulary"`
	Pronunciation int `json:"pronunciation"`
	Fluency       int `json:"fluency"`
}

// CustomEnemy is the battle opponent generated from a player's weakest area.
type CustomEnemy struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Weakness    string `json:"weakness"`
	HP          int    `json:"hp"`
	Image       string `json:"image"`
	Color       string `json:"color"`
}

// Question is an adaptive follow-up exercise built from a detected error.
type Question struct {
	ID            int      `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Complexity    float64  `json:"complexity"`
	Explanation   string   `json:"explanation"`
}

// AnalysisResult is the full outcome of analyzing a speech transcript.
type AnalysisResult struct {
	BandEstimate float64       `json:"bandEstimate"`
	Errors       []ErrorDetail `json:"errors"`
	Enemy        CustomEnemy   `json:"enemy"`
	GapGraph     GapGraph      `json:"gapGraph"`
	Questions    []Question    `json:"questions"`
}

// CombatResult scores a single voice attack.
type CombatResult struct {
	Damage     int    `json:"damage"`
	IsCritical bool   `json:"isCritical"`
	Feedback   string `json:"feedback"`
	RecoilType string `json:"recoilType"`
}
