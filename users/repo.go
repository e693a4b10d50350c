package users

type UserRepo interface {
	Upsert(user *User) error
	Delete(id string) error
	GetByID(id string) (*User, error)
	GetByEmail(email string) (*User, error)
	GetByUsername(username string) (*User, error)
	List(offset, limit int) ([]*User, error)
}
