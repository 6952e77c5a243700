package employee

type Employee struct {
	ID       string
	FullName string
	// PINHash is a bcrypt hash; nil when the employee registers without a PIN.
	PINHash *string
	Active  bool
}
