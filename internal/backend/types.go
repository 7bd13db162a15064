package backend

// ChatRequest is the body posted to the chat endpoint
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse carries either Response or Error
type ChatResponse struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SpeakRequest is the body posted to the speech endpoint
type SpeakRequest struct {
	Text string `json:"text"`
}

// SpeakResponse carries base64 WAV in Audio, or Error
type SpeakResponse struct {
	Status string `json:"status,omitempty"`
	Audio  string `json:"audio,omitempty"`
	Error  string `json:"error,omitempty"`
}

// EndpointError is an error the endpoint itself reported in its JSON body.
type EndpointError struct {
	Endpoint string
	Message  string
}

func (e *EndpointError) Error() string {
	return e.Endpoint + " endpoint error: " + e.Message
}
