package posts

import "errors"

var (
	ErrPostNotFound = errors.New("post not found")
	ErrDuplicateID  = errors.New("post id already exists")
)

// Post is one entry of the posts resource.
type Post struct {
	UserID int64  `json:"userId"`
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// PostPatch carries the fields of an update. Nil fields are left unchanged.
type PostPatch struct {
	UserID *int64  `json:"userId,omitempty"`
	Title  *string `json:"title,omitempty"`
	Body   *string `json:"body,omitempty"`
}

// Apply returns p with the patch's non-nil fields replaced. The id never changes.
func (patch PostPatch) Apply(p Post) Post {
	if patch.UserID != nil {
		p.UserID = *patch.UserID
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Body != nil {
		p.Body = *patch.Body
	}
	return p
}
