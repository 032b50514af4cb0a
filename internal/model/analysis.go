package model

// AnalysisResult holds the feature-extraction output for an uploaded track.
type AnalysisResult struct {
	Filename   string  `json:"filename"`
	SizeBytes  int64   `json:"size_bytes"`
	BPM        float64 `json:"bpm"`
	Key        string  `json:"key"`
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate"`
}
