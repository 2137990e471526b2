package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

const analysisSystemPrompt = `You are an IELTS expert analyzing spoken English. Detect errors in:
1. Grammar (verb tenses, subject-verb agreement, articles)
2. Vocabulary (word choice, collocations)
3. Pronunciation issues that affect comprehensibility (not accent)
4. Fluency (hesitations, repetitions, incomplete thoughts)

Return a JSON object with:
{
  "bandEstimate": 5.5,
  "errors": [
    {"type": "grammar", "original": "I goes", "correction": "I go", "explanation": "..."},
    {"type": "vocabulary", "original": "big problem", "correction": "significant issue", "explanation": "..."}
  ],
  "gapGraph": {"grammar": 60, "vocabulary": 40, "pronunciation": 80, "fluency": 70}
}`

const combatSystemPrompt = `You are analyzing a voice attack in an RPG combat system.
The enemy's weakness is: %s.

Evaluate the speech for:
1. Fluency (hesitations reduce damage)
2. Vocabulary complexity (advanced words = more damage)
3. Grammar accuracy (errors reduce damage)
4. How well it exploits the enemy's weakness

Return JSON:
{
  "damage": 15-100,
  "isCritical": true/false,
  "feedback": "brief feedback",
  "recoilType": "recoil-light" | "recoil-medium" | "recoil-heavy" | "critical-hit"
}`

var enemyTable = map[string]CustomEnemy{
	"grammar": {
		Name:        "Grammar Gargoyle",
		Type:        "grammar",
		Description: "A stone beast that feeds on broken sentences",
		Weakness:    "Perfect verb tenses and subject-verb agreement",
		HP:          120,
		Image:       "🗿",
		Color:       "#8B4513",
	},
	"vocabulary": {
		Name:        "Lexicon Lich",
		Type:        "vocabulary",
		Description: "An undead scholar hoarding forbidden words",
		Weakness:    "Advanced academic vocabulary and collocations",
		HP:          100,
		Image:       "📚",
		Color:       "#4B0082",
	},
	"pronunciation": {
		Name:        "Phonetic Phantom",
		Type:        "pronunciation",
		Description: "A ghost that distorts your voice",
		Weakness:    "Clear articulation and proper stress patterns",
		HP:          90,
		Image:       "👻",
		Color:       "#9370DB",
	},
	"fluency": {
		Name:        "Hesitation Hydra",
		Type:        "fluency",
		Description: "A many-headed serpent that multiplies with every pause",
		Weakness:    "Smooth, continuous speech with natural linking",
		HP:          110,
		Image:       "🐉",
		Color:       "#DC143C",
	},
}

// Analyzer scores transcripts and voice attacks using the model client.
type Analyzer struct {
	client *Client
}

// NewAnalyzer creates an analyzer backed by the given client.
func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

// AnalyzeTranscript detects errors in a transcript and builds the
// matching enemy and follow-up questions.
func (a *Analyzer) AnalyzeTranscript(ctx context.Context, transcript string) (*AnalysisResult, error) {
	user := fmt.Sprintf("Analyze this English speech: %q", transcript)
	content, err := a.client.CompleteJSON(ctx, analysisSystemPrompt, user, 0.7)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze transcript: %w", err)
	}

	var parsed struct {
		BandEstimate float64       `json:"bandEstimate"`
		Errors       []ErrorDetail `json:"errors"`
		GapGraph     GapGraph      `json:"gapGraph"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}

	var primary *ErrorDetail
	if len(parsed.Errors) > 0 {
		primary = &parsed.Errors[0]
	}

	return &AnalysisResult{
		BandEstimate: parsed.BandEstimate,
		Errors:       parsed.Errors,
		Enemy:        enemyFor(primary),
		GapGraph:     parsed.GapGraph,
		Questions:    buildQuestions(parsed.Errors, parsed.BandEstimate),
	}, nil
}

// AnalyzeVoiceCombat scores a voice attack against the enemy's weakness.
// Any provider failure degrades to a minimal-damage hit so combat never
// stalls on an upstream outage.
func (a *Analyzer) AnalyzeVoiceCombat(ctx context.Context, transcript, enemyWeakness string) *CombatResult {
	system := fmt.Sprintf(combatSystemPrompt, enemyWeakness)
	user := fmt.Sprintf("Speech: %q", transcript)

	content, err := a.client.CompleteJSON(ctx, system, user, 0.8)
	if err != nil {
		log.Printf("[speech] voice combat analysis error: %v", err)
		return fallbackCombatResult()
	}

	var result CombatResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		log.Printf("[speech] voice combat parse error: %v", err)
		return fallbackCombatResult()
	}
	return &result
}

func fallbackCombatResult() *CombatResult {
	return &CombatResult{
		Damage:     10,
		IsCritical: false,
		Feedback:   "Attack landed but caused minimal damage",
		RecoilType: "recoil-light",
	}
}

func enemyFor(primary *ErrorDetail) CustomEnemy {
	if primary != nil {
		if enemy, ok := enemyTable[primary.Type]; ok {
			return enemy
		}
	}
	return enemyTable["grammar"]
}

func buildQuestions(errs []ErrorDetail, bandEstimate float64) []Question {
	original := "I goes to school"
	correction := "I go to school"
	explanation := "Use proper subject-verb agreement"
	if len(errs) > 0 {
		if errs[0].Original != "" {
			original = errs[0].Original
		}
		if errs[0].Correction != "" {
			correction = errs[0].Correction
		}
		if errs[0].Explanation != "" {
			explanation = errs[0].Explanation
		}
	}

	complexity := 0.5
	if bandEstimate > 6 {
		complexity = 0.8
	}

	return []Question{
		{
			ID:     1,
			Prompt: fmt.Sprintf("Correct this sentence: %q", original),
			Options: []string{
				correction,
				"I going to school",
				"I gone to school",
				"I went to school",
			},
			CorrectAnswer: correction,
			Complexity:    complexity,
			Explanation:   explanation,
		},
	}
}
