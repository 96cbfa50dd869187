package postgres

// Error Messages - Journal
const (
	ErrMsgFailedToMarshalSteps     = "failed to encode submission steps"
	ErrMsgFailedToInsertSubmission = "failed to insert submission"
	ErrMsgFailedToQuerySubmissions = "failed to query submissions"
)
