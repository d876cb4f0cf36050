package domain

// ClassifierRequest carries the features sent to the external classifier for
// one trial balance line.
type ClassifierRequest struct {
	SourceCode       string  `json:"sourceCode"`       // Raw account code from the source system
	SourceName       string  `json:"sourceName"`       // Raw account name from the source system
	NormalizedSource string  `json:"normalizedSource"` // Normalized source account text
	NetMagnitude     float64 `json:"netMagnitude"`     // Absolute net amount of the line
	NetSign          int     `json:"netSign"`          // -1, 0 or 1
	IsDebit          bool    `json:"isDebit"`          // True when the debit side carries the balance
	ModelVersion     string  `json:"modelVersion"`     // Model version pinned for the batch, empty for latest
}

// ClassifierAlternative is one lower-ranked prediction from the classifier.
type ClassifierAlternative struct {
	Identifier  string  `json:"identifier"`  // Canonical account code or concept tag
	Probability float64 `json:"probability"` // Model probability in [0,1]
}

// ClassifierPrediction is the classifier's answer for one line. The identifier
// may name a canonical account code or a concept tag; the caller resolves it
// against the taxonomy.
type ClassifierPrediction struct {
	Identifier   string                  `json:"identifier"`   // Predicted account code or concept tag
	Probability  float64                 `json:"probability"`  // Model probability in [0,1]
	Alternatives []ClassifierAlternative `json:"alternatives"` // Lower-ranked predictions, best first
	ModelVersion string                  `json:"modelVersion"` // Version of the model that produced the prediction
}
