package store

// Document is a stored JSON record in a collection.
type Document struct {
	Seq        int64
	Collection string
	ID         string
	Data       []byte
	CreatedAt  int64
	UpdatedAt  int64
}

// Account is a local credential record.
type Account struct {
	UserID       string
	Email        string
	PasswordHash string
	CreatedAt    int64
}
