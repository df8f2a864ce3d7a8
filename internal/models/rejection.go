package stamps

import "errors"

// Причины отказа в мутации
type Reason string

const (
	ReasonProgramsQuota  Reason = "programs_quota_exceeded"
	ReasonCustomersQuota Reason = "customers_quota_exceeded"
	ReasonInvalidPhone   Reason = "invalid_phone"
	ReasonDuplicatePhone Reason = "duplicate_phone"
	ReasonInvalidProgram Reason = "invalid_program"
	ReasonNotFound       Reason = "not_found"
	ReasonIncomplete     Reason = "stamps_incomplete"
)

// Rejection is returned by engine intents when an admission rule fails.
// State is never changed when a Rejection is returned.
type Rejection struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
	err     error
}

func NewRejection(reason Reason, err error, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message, err: err}
}

func (r *Rejection) Error() string {
	return r.Message
}

func (r *Rejection) Unwrap() error {
	return r.err
}

// Достать Rejection из цепочки ошибок
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
