package clients

// Repo is the application registry. GetByUID returns errors.ErrNotFound for an unknown uid.
type Repo interface {
	Upsert(client *Client) error
	Delete(uid string) error
	GetByUID(uid string) (*Client, error)
	List(offset, limit int) ([]*Client, error)
}
