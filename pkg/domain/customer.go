package domain

import "github.com/hankgalt/batch-export/pkg/utils"

// Customer is the record exported by the customer job.
type Customer struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// GetId returns the decimal customer identifier.
func (c Customer) GetId() string {
	return utils.Int64ToString(c.ID)
}

// Fields returns the extract columns in output order: id, name, email.
func (c Customer) Fields() []string {
	return []string{c.GetId(), c.Name, c.Email}
}
