package models

// MediaSuggestion holds contextual assets for the chapter at Stage.
// A failed resolution keeps all references nil and sets Failed.
type MediaSuggestion struct {
	Stage   int     `json:"stage"`
	Image   *string `json:"image,omitempty"`
	Video   *string `json:"video,omitempty"`
	Sound   *string `json:"sound,omitempty"`
	Failed  bool    `json:"failed"`
	Message string  `json:"message,omitempty"`
}

// HasSound reports whether the suggestion carries a directly playable sound asset.
func (m *MediaSuggestion) HasSound() bool {
	return m != nil && m.Sound != nil && *m.Sound != ""
}
