package domain

// IssuedCredentials is the login material generated at approval time.
// Exactly one of PRN or EmployeeID is set, depending on the user type;
// use the constructors below rather than building the struct directly.
type IssuedCredentials struct {
	UserType   UserType
	Email      string
	Password   string
	PRN        string
	EmployeeID string
}

// StudentCredentials builds the student credential variant.
func StudentCredentials(email, password, prn string) IssuedCredentials {
	return IssuedCredentials{
		UserType: UserTypeStudent,
		Email:    email,
		Password: password,
		PRN:      prn,
	}
}

// FacultyCredentials builds the faculty credential variant.
func FacultyCredentials(email, password, employeeID string) IssuedCredentials {
	return IssuedCredentials{
		UserType:   UserTypeFaculty,
		Email:      email,
		Password:   password,
		EmployeeID: employeeID,
	}
}

// Identifier returns the issued identifier regardless of variant.
func (c IssuedCredentials) Identifier() string {
	if c.UserType == UserTypeFaculty {
		return c.EmployeeID
	}
	return c.PRN
}
