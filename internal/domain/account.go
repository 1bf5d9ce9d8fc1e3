package domain

import "time"

// Account is the durable end-state of a completed registration.
// PK: email. Emails are stored exactly as supplied (case-sensitive) and
// compared exactly; the policy is fixed at issuance time.
type Account struct {
	AccountID    string    `json:"id" dynamodbav:"account_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Name         string    `json:"name" dynamodbav:"name"`
	Surname      string    `json:"surname" dynamodbav:"surname"`
	DateOfBirth  string    `json:"date_of_birth" dynamodbav:"date_of_birth"` // YYYY-MM-DD
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}
