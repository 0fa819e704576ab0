package http

// generateReq is the body of POST /generate.
type generateReq struct {
	Prompt string `json:"prompt"`
}

// generateResp mirrors what the web client has always consumed: the
// provider's output list under "prediction".
type generateResp struct {
	Prediction []string `json:"prediction"`
}

// saveReq is the body of POST /designs. ImageURL is the ephemeral
// provider URL from a previous /generate response.
type saveReq struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url"`
}
