package messagequeue

// RequestCreatedPayload is the schema for requests.created messages.
type RequestCreatedPayload struct {
	RequestID    string `json:"request_id"`
	SparkID      string `json:"spark_id"`
	SparkSlug    string `json:"spark_slug"`
	SparkTitle   string `json:"spark_title"`
	ClientID     string `json:"client_id"`
	ConsultantID string `json:"consultant_id"`
}

// RequestStatusPayload is the schema for requests.status messages.
type RequestStatusPayload struct {
	RequestID    string `json:"request_id"`
	SparkID      string `json:"spark_id"`
	ClientID     string `json:"client_id"`
	ConsultantID string `json:"consultant_id"`
	OldStatus    string `json:"old_status"`
	NewStatus    string `json:"new_status"`
}

// SparkUpdatedPayload is the schema for sparks.updated messages.
type SparkUpdatedPayload struct {
	SparkID string `json:"spark_id"`
	Slug    string `json:"slug"`
	Deleted bool   `json:"deleted"`
}
