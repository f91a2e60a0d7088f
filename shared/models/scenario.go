package models

// ScenarioOutcome distinguishes a further chapter from the end of the narrative.
type ScenarioOutcome string

const (
	ScenarioOutcomeChapter ScenarioOutcome = "chapter"
	ScenarioOutcomeDone    ScenarioOutcome = "done"
)

// StartScenarioRequest asks the narrative backend for the first chapter.
type StartScenarioRequest struct {
	PatientID       string
	InitialDistress DistressRating
}

// AdvanceScenarioRequest asks for the chapter after the one ScenarioState belongs to.
type AdvanceScenarioRequest struct {
	PatientID       string
	CurrentDistress DistressRating
	ScenarioState   ScenarioState
}

// RegressScenarioRequest asks for an earlier chapter that is not cached locally.
type RegressScenarioRequest struct {
	PatientID     string
	TargetStage   int
	ScenarioState ScenarioState
}

// ScenarioResult is a successful answer of the narrative backend.
// Chapter is set only when Outcome is ScenarioOutcomeChapter.
type ScenarioResult struct {
	Outcome ScenarioOutcome
	Chapter *Chapter
}

// MediaRequest asks for contextual media matching a chapter's narrative.
type MediaRequest struct {
	PatientID     string
	Stage         int
	NarrativeText string
}
