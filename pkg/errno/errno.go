package errno

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	switch typed := err.(type) {
	case *Errno:
		return typed.Code, typed.Message
	case Errno:
		return typed.Code, typed.Message
	default:
		return InternalServerError.Code, err.Error()
	}
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
)

// Validation Errors (20300+)
var (
	ErrMalformedAmount   = Errno{Code: 20301, Message: "Malformed amount"}
	ErrNonPositiveAmount = Errno{Code: 20302, Message: "Amount must be greater than zero"}
	ErrInvalidAddress    = Errno{Code: 20303, Message: "Invalid address"}
	ErrMissingField      = Errno{Code: 20304, Message: "Required field is missing"}
	ErrImportRejected    = Errno{Code: 20305, Message: "CSV import rejected"}
)

// Distribution Errors (20400+)
var (
	ErrInsufficientBalance   = Errno{Code: 20401, Message: "Insufficient balance"}
	ErrInsufficientAllowance = Errno{Code: 20402, Message: "Insufficient allowance"}
	ErrBatchNotSendable      = Errno{Code: 20403, Message: "Batch is not sendable"}
	ErrOperationInFlight     = Errno{Code: 20404, Message: "Another operation is in flight"}
	ErrApprovalNotRequired   = Errno{Code: 20405, Message: "Approval is not required for this batch"}
	ErrNoAssetSelected       = Errno{Code: 20406, Message: "No asset selected"}
)

// External Collaborator Errors (20500+)
var (
	ErrRequestRejected    = Errno{Code: 20501, Message: "Request rejected by signer"}
	ErrConfirmationFailed = Errno{Code: 20502, Message: "On-chain confirmation failed"}
)
