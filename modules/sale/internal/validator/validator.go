package validator

// Validator is a fail-fast check chain: once a check fails, every later
// check is skipped and Reason keeps the first failure.
type Validator struct {
	Valid  bool
	Reason string
}

func New() *Validator {
	return &Validator{
		Valid: true,
	}
}

// Fail marks the chain invalid with reason.
func (v *Validator) Fail(reason string) bool {
	v.Valid = false
	v.Reason = reason
	return v.Valid
}
