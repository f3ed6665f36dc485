package ai

// Payload is the vendor-agnostic data carried by a successful call.
// Raw keeps the unparsed vendor body for diagnostics and re-extraction.
type Payload struct {
	Text       string  `json:"text"`
	Language   string  `json:"language,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
	WordCount  int     `json:"word_count,omitempty"`
	Raw        []byte  `json:"-"`
}

// Result is the canonical envelope returned by every driver call.
// Success implies Error is empty; failure implies Data is nil.
// Treated as immutable once returned from a driver.
type Result struct {
	Success bool              `json:"success"`
	Data    *Payload          `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
}

func successResult(status int, headers map[string]string, data *Payload) Result {
	return Result{Success: true, Data: data, Status: status, Headers: headers}
}

func failureResult(status int, headers map[string]string, errMsg string) Result {
	return Result{Success: false, Error: errMsg, Status: status, Headers: headers}
}
