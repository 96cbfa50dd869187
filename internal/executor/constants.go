package executor

// Operation names reported in transport errors
const (
	OpEstimateGas   = "estimate gas"
	OpBuildTx       = "build transaction"
	OpSend          = "send transaction"
	OpWaitReceipt   = "wait for receipt"
	CallBatch       = "batchCall"
	RevertedPayload = "transaction reverted on chain"
)

// Log messages
const (
	LogMsgSubmitting       = "Submitting batch"
	LogMsgSubmittingSingle = "Submitting call"
	LogMsgSubmitted        = "Submission sent"
	LogMsgConfirmed        = "Submission confirmed"
	LogMsgPreflightFailed  = "Pre-flight simulation rejected"
	LogMsgStepLocated      = "Failing step located"
)
